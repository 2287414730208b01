package cnst

const (
	AppName     = "catalogpilot"
	CommandName = "apiserver"
)

// Request headers
const (
	XLang      = "X-Lang"
	XRequestID = "X-Request-Id"
)

// Keys stored on the gin context
const (
	CtxLang      = "lang"
	CtxRequestID = "request_id"
	CtxClaims    = "claims"
	CtxUser      = "user"
)

const (
	LangEN      = "en"
	LangES      = "es"
	LangDefault = LangEN
)
