package event

// DefaultRules returns the stock forwarding table between the CORE,
// AUTOMATION and AGENT buses:
//
//	AGENT      -> CORE        consensus replies, vetoes, votes, collective signals
//	CORE       -> AGENT       new judgments, perceptions, budget alerts
//	AUTOMATION -> CORE        market, social and chain signals
//	CORE       -> AUTOMATION  budget exhaustion, evolution ticks, emergence, decisions
//	CORE       -> AGENT       evolution ticks and emergence
func DefaultRules() []ForwardRule {
	return []ForwardRule{
		{
			Source: AgentBus,
			Target: CoreBus,
			Types:  []string{PBFTReply, DogVeto, CollectiveSignal, LLMBenchmarkDone, DogVote},
		},
		{
			Source: CoreBus,
			Target: AgentBus,
			Types:  []string{JudgmentCreated, PerceptionReceived, BudgetWarning, BudgetExhausted},
		},
		{
			Source: AutomationBus,
			Target: CoreBus,
			Types:  []string{PriceTick, SocialSignal, TxConfirmed, TxFailed, MarketAlert},
		},
		{
			Source: CoreBus,
			Target: AutomationBus,
			Types:  []string{BudgetExhausted, MetaCycle, EmergenceDetected, DecisionMade},
		},
		{
			Source: CoreBus,
			Target: AgentBus,
			Types:  []string{MetaCycle, EmergenceDetected},
		},
	}
}

// NewDefaultBridge registers the three well-known buses of reg on a new
// bridge and declares DefaultRules. The bridge is not started.
func NewDefaultBridge(reg *Registry, opts ...BridgeOption) (*Bridge, error) {
	b := NewBridge(opts...)
	for _, bus := range []*Bus{reg.Core(), reg.Automation(), reg.Agent()} {
		if err := b.RegisterBus(bus); err != nil {
			return nil, err
		}
	}
	for _, r := range DefaultRules() {
		if err := b.AddRule(r); err != nil {
			return nil, err
		}
	}
	return b, nil
}
