package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

func decoded(srcs ...insts.Reg) *pipeline.DecodeRegister {
	r := &pipeline.DecodeRegister{
		Src:  [3]insts.Reg{insts.RegNone, insts.RegNone, insts.RegNone},
		Dest: insts.RegT2,
	}
	copy(r.Src[:], srcs)
	return r
}

func offer(tier pipeline.Tier, reg insts.Reg, value int32) pipeline.ForwardOffer {
	return pipeline.ForwardOffer{Tier: tier, Reg: reg, Value: value}
}

var _ = Describe("HazardUnit", func() {
	Context("with forwarding", func() {
		var unit *pipeline.HazardUnit

		BeforeEach(func() {
			unit = pipeline.NewHazardUnit(true)
			Expect(unit.Forwarding()).To(BeTrue())
		})

		It("should do nothing without a match", func() {
			next := decoded(insts.RegT0, insts.RegT1)
			next.Ops = [3]int32{1, 2, 0}

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegS0, 99),
				{},
				offer(pipeline.TierWriteback, insts.RegA0, 98),
			}, false)

			Expect(result).To(Equal(pipeline.HazardResult{}))
			Expect(next.Ops).To(Equal([3]int32{1, 2, 0}))
		})

		It("should prefer execute over memory over write-back", func() {
			next := decoded(insts.RegT0, insts.RegT1)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegT0, 3),
				offer(pipeline.TierMemory, insts.RegT0, 2),
				offer(pipeline.TierWriteback, insts.RegT1, 1),
			}, false)

			Expect(next.Ops[0]).To(Equal(int32(3)))
			Expect(next.Ops[1]).To(Equal(int32(1)))
			Expect(result.Forwarded).To(Equal([3]pipeline.Tier{
				pipeline.TierExecute, pipeline.TierWriteback, pipeline.TierNone,
			}))
			Expect(result.DataHazards).To(Equal(uint64(2)))
			Expect(result.Stall).To(BeZero())
		})

		It("should forward to every slot reading the register", func() {
			next := decoded(insts.RegA1, insts.RegA1, insts.RegA3)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				{},
				offer(pipeline.TierMemory, insts.RegA1, 56),
				{},
			}, false)

			Expect(next.Ops).To(Equal([3]int32{56, 56, 0}))
			Expect(result.DataHazards).To(Equal(uint64(2)))
		})

		It("should never forward x0", func() {
			next := decoded(insts.RegZero)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegZero, 5),
			}, false)

			Expect(next.Ops[0]).To(BeZero())
			Expect(result.DataHazards).To(BeZero())
		})

		It("should ignore a bubble", func() {
			next := &pipeline.DecodeRegister{Bubble: true}

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegZero, 5),
				offer(pipeline.TierMemory, insts.RegT0, 5),
			}, false)

			Expect(result).To(Equal(pipeline.HazardResult{}))
		})

		It("should report a load-use dependency once", func() {
			next := decoded(insts.RegT0, insts.RegT0)
			load := offer(pipeline.TierExecute, insts.RegT0, 0x100)
			load.Pending = true

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				load,
				offer(pipeline.TierMemory, insts.RegT0, 1),
				{},
			}, false)

			Expect(result.LoadUse).To(BeTrue())
			Expect(result.MemoryHazards).To(Equal(uint64(1)))
			Expect(result.DataHazards).To(BeZero())
			Expect(next.Ops[0]).To(BeZero())
		})

		It("should fill a frozen register from the memory tier only", func() {
			next := &pipeline.DecodeRegister{Bubble: true}
			frozen := decoded(insts.RegT0, insts.RegT1)

			result := unit.Resolve(next, frozen, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegT1, 9),
				offer(pipeline.TierMemory, insts.RegT0, 7),
				offer(pipeline.TierWriteback, insts.RegT1, 8),
			}, false)

			Expect(frozen.Ops).To(Equal([3]int32{7, 0, 0}))
			Expect(result.DataHazards).To(Equal(uint64(1)))
			Expect(result.LoadUse).To(BeFalse())
		})
	})

	Context("without forwarding", func() {
		var unit *pipeline.HazardUnit

		BeforeEach(func() {
			unit = pipeline.NewHazardUnit(false)
			Expect(unit.Forwarding()).To(BeFalse())
		})

		DescribeTable("should stall by producer distance",
			func(tier pipeline.Tier, stall int) {
				next := decoded(insts.RegT0)
				offers := []pipeline.ForwardOffer{{}, {}, {}}
				offers[tier-1] = offer(tier, insts.RegT0, 1)

				result := unit.Resolve(next, nil, offers, false)

				Expect(result.Stall).To(Equal(stall))
				Expect(result.DataHazards).To(Equal(uint64(1)))
				Expect(next.Ops[0]).To(BeZero())
			},
			Entry("execute", pipeline.TierExecute, 3),
			Entry("memory", pipeline.TierMemory, 2),
			Entry("write-back", pipeline.TierWriteback, 1),
		)

		It("should let execute override older producers", func() {
			next := decoded(insts.RegT0, insts.RegT1)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegT1, 1),
				offer(pipeline.TierMemory, insts.RegT0, 2),
				offer(pipeline.TierWriteback, insts.RegT0, 3),
			}, false)

			Expect(result.Stall).To(Equal(3))
			Expect(result.DataHazards).To(Equal(uint64(1)))
		})

		It("should count a pending load as a memory hazard", func() {
			next := decoded(insts.RegT0)
			load := offer(pipeline.TierExecute, insts.RegT0, 0)
			load.Pending = true

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{load, {}, {}}, false)

			Expect(result.Stall).To(Equal(3))
			Expect(result.MemoryHazards).To(Equal(uint64(1)))
			Expect(result.DataHazards).To(BeZero())
			Expect(result.LoadUse).To(BeFalse())
		})

		It("should skip older producers on a control hazard", func() {
			next := decoded(insts.RegT0)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				{},
				offer(pipeline.TierMemory, insts.RegT0, 2),
				{},
			}, true)

			Expect(result.Stall).To(BeZero())
			Expect(result.DataHazards).To(BeZero())
		})

		It("should never stall on x0", func() {
			next := decoded(insts.RegZero, insts.RegZero)

			result := unit.Resolve(next, nil, []pipeline.ForwardOffer{
				offer(pipeline.TierExecute, insts.RegZero, 1),
				{},
				{},
			}, false)

			Expect(result.Stall).To(BeZero())
		})
	})
})
