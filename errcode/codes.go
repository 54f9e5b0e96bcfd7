package errcode

// Duration parsing (01xx)
var (
	ErrDurationFormat = Register(New(101,
		"error.logconf.duration_format", "malformed duration"))
)

// Interpretation stack (02xx)
var (
	ErrStackEmpty = Register(New(201,
		"error.logconf.stack_empty", "interpretation stack is empty"))
	ErrStackMismatch = Register(New(202,
		"error.logconf.stack_mismatch", "unexpected object on top of interpretation stack"))
	ErrStackUnbalanced = Register(New(203,
		"error.logconf.stack_unbalanced", "interpretation stack left unbalanced"))
)

// Configuration sources and documents (03xx)
var (
	ErrSourceUnreadable = Register(New(301,
		"error.logconf.source_unreadable", "configuration source unreadable"))
	ErrMalformedConfig = Register(New(302,
		"error.logconf.malformed_config", "malformed configuration"))
	ErrElementSkipped = Register(New(303,
		"error.logconf.element_skipped", "configuration element skipped"))
)

// Logger context (04xx)
var (
	ErrConfigureInProgress = Register(New(401,
		"error.logconf.configure_in_progress", "another configuration pass is in progress"))
	ErrNoDraft = Register(New(402,
		"error.logconf.no_draft", "no configuration pass is active"))
)

// Reload trigger (05xx)
var (
	ErrCheckInFlight = Register(New(501,
		"error.logconf.check_in_flight", "change check already in flight"))
	ErrTriggerStopped = Register(New(502,
		"error.logconf.trigger_stopped", "reload trigger stopped"))
)

// Appenders (06xx)
var (
	ErrInvalidAppender = Register(New(601,
		"error.logconf.invalid_appender", "invalid appender"))
)

// Bootstrap settings (07xx)
var (
	ErrInvalidBootstrap = Register(New(701,
		"error.logconf.invalid_bootstrap", "invalid bootstrap settings"))
	ErrLoadBootstrap = Register(New(702,
		"error.logconf.load_bootstrap", "bootstrap settings could not be loaded"))
)
