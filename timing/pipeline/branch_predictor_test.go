package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("BranchPredictor", func() {
	Describe("NewBranchPredictor", func() {
		DescribeTable("should build a strategy from its key",
			func(key, name string) {
				bp, err := pipeline.NewBranchPredictor(key)
				Expect(err).NotTo(HaveOccurred())
				Expect(bp.StrategyName()).To(Equal(name))
			},
			Entry("AT", "AT", "Always Taken"),
			Entry("NT", "NT", "Always Not Taken"),
			Entry("BTFNT", "BTFNT", "Back Taken Forward Not Taken"),
			Entry("BPB", "BPB", "Branch Prediction Buffer"),
			Entry("lower case", "bpb", "Branch Prediction Buffer"),
		)

		It("should reject an unknown key", func() {
			_, err := pipeline.NewBranchPredictor("tournament")
			Expect(err).To(MatchError(ContainSubstring("tournament")))
		})
	})

	Describe("Static strategies", func() {
		It("should always predict taken", func() {
			bp := pipeline.AlwaysTaken{}
			Expect(bp.Predict(0x1000, insts.KindBEQ, 1, 2, 8)).To(BeTrue())
			bp.Update(0x1000, false)
			Expect(bp.Predict(0x1000, insts.KindBEQ, 1, 2, -8)).To(BeTrue())
		})

		It("should always predict not taken", func() {
			bp := pipeline.AlwaysNotTaken{}
			Expect(bp.Predict(0x1000, insts.KindBNE, 1, 2, -8)).To(BeFalse())
			bp.Update(0x1000, true)
			Expect(bp.Predict(0x1000, insts.KindBNE, 1, 2, 8)).To(BeFalse())
		})

		It("should predict only backward branches taken", func() {
			bp := pipeline.BackwardTaken{}
			Expect(bp.Predict(0x1000, insts.KindBLT, 0, 0, -16)).To(BeTrue())
			Expect(bp.Predict(0x1000, insts.KindBLT, 0, 0, 16)).To(BeFalse())
		})
	})

	Describe("BufferPredictor", func() {
		var bp *pipeline.BufferPredictor

		BeforeEach(func() {
			bp = pipeline.NewBufferPredictor(pipeline.BufferPredictorConfig{Entries: 16})
		})

		It("should start weakly taken", func() {
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
			Expect(bp.Stats().Predictions).To(Equal(uint64(1)))
		})

		It("should follow outcomes with hysteresis", func() {
			bp.Update(0x1000, false)
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeFalse())

			bp.Update(0x1000, false)
			bp.Update(0x1000, true)
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeFalse())

			bp.Update(0x1000, true)
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
		})

		It("should saturate", func() {
			for i := 0; i < 10; i++ {
				bp.Update(0x1000, true)
			}
			bp.Update(0x1000, false)
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
		})

		It("should alias branches that share an index", func() {
			bp.Update(0x1000, false)
			Expect(bp.Predict(0x1000+16*4, insts.KindBEQ, 0, 0, 8)).To(BeFalse())
			Expect(bp.Predict(0x1004, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
		})

		It("should track accuracy", func() {
			bp.Update(0x1000, true)
			bp.Update(0x1000, true)
			bp.Update(0x1000, false)
			bp.Update(0x1000, true)

			stats := bp.Stats()
			Expect(stats.Correct).To(Equal(uint64(3)))
			Expect(stats.Mispredictions).To(Equal(uint64(1)))
			Expect(stats.Accuracy()).To(BeNumerically("~", 75.0, 1e-9))
		})

		It("should reset counters and statistics", func() {
			bp.Update(0x1000, false)
			bp.Update(0x1000, false)
			bp.Reset()

			Expect(bp.Stats()).To(Equal(pipeline.BufferPredictorStats{}))
			Expect(bp.Predict(0x1000, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
		})

		It("should fall back to the default size", func() {
			bp := pipeline.NewBufferPredictor(pipeline.BufferPredictorConfig{Entries: 10})
			bp.Update(0x1000, false)
			Expect(bp.Predict(0x1000+16*4, insts.KindBEQ, 0, 0, 8)).To(BeTrue())
		})
	})
})
