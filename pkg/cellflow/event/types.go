package event

// CORE bus event types.
const (
	JudgmentRequested = "judgment.requested"
	JudgmentCreated   = "judgment.created"
	JudgmentFailed    = "judgment.failed"
	ConsensusReached  = "consensus.reached"
	ConsensusFailed   = "consensus.failed"

	LearningEvent = "learning.event"
	QTableUpdated = "learning.q_table_updated"
	EWCCheckpoint = "learning.ewc_checkpoint"
	SONATick      = "learning.sona_tick"
	MetaCycle     = "learning.meta_cycle"

	PerceptionReceived = "perception.received"
	AnomalyDetected    = "perception.anomaly"

	ConsciousnessChanged = "consciousness.changed"
	BudgetWarning        = "budget.warning"
	BudgetExhausted      = "budget.exhausted"

	UserFeedback   = "user.feedback"
	UserCorrection = "user.correction"

	EmergenceDetected = "emergence.detected"
	ResidualHigh      = "emergence.residual_high"
	Transcendence     = "emergence.transcendence"

	IdentityViolation = "identity.violation"

	ActRequested = "act.requested"
	DecisionMade = "decide.made"

	SDKSessionStarted = "sdk.session_started"
	SDKToolJudged     = "sdk.tool_judged"
	SDKResultReceived = "sdk.result_received"
)

// AUTOMATION bus event types.
const (
	TriggerFired   = "trigger.fired"
	TriggerBlocked = "trigger.blocked"
	AutomationTick = "automation.tick"

	PriceTick   = "market.price_tick"
	MarketAlert = "market.alert"

	SocialSignal = "social.signal"

	TxConfirmed = "solana.tx_confirmed"
	TxFailed    = "solana.tx_failed"

	PerceiveCode   = "schedule.perceive_code"
	PerceiveSolana = "schedule.perceive_solana"
	PerceiveMarket = "schedule.perceive_market"
	PerceiveSocial = "schedule.perceive_social"
	LearnBatch     = "schedule.learn_batch"
	EScoreUpdate   = "schedule.e_score_update"
)

// AGENT bus event types.
const (
	DogActivated    = "dog.activated"
	DogDeactivated  = "dog.deactivated"
	DogBenchmarkRun = "dog.benchmark_run"

	PBFTPrePrepare = "pbft.pre_prepare"
	PBFTPrepare    = "pbft.prepare"
	PBFTCommit     = "pbft.commit"
	PBFTReply      = "pbft.reply"
	PBFTViewChange = "pbft.view_change"

	DogVote    = "dog.vote"
	DogAbstain = "dog.abstain"
	DogVeto    = "dog.veto"

	DogSignal        = "dog.signal"
	CollectiveSignal = "collective.signal"

	LLMSelected      = "llm.selected"
	LLMBenchmarkDone = "llm.benchmark_done"
)
