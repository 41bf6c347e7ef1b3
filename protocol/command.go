package protocol

// LineKind is the classification of a single line received from the
// management interface.
type LineKind int

const (
	// KindBody is a line of a multi-line reply block.
	KindBody LineKind = iota
	// KindSuccess is a single-line reply carrying the success prefix.
	KindSuccess
	// KindError is a single-line reply carrying the error prefix.
	KindError
	// KindTerminator ends a multi-line reply block.
	KindTerminator
	// KindNotification is an asynchronous line pushed by the peer.
	KindNotification
)

func (k LineKind) String() string {
	switch k {
	case KindBody:
		return "body"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindTerminator:
		return "terminator"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Dialect holds the tokens a peer uses to frame replies and notifications.
//
// They differ between management interface implementations, so they are
// configuration rather than constants baked into the parser.
type Dialect struct {
	// SuccessPrefix starts a single-line success reply, e.g. "SUCCESS:"
	SuccessPrefix string

	// ErrorPrefix starts a single-line error reply, e.g. "ERROR:"
	ErrorPrefix string

	// Terminator is the whole line that ends a multi-line reply, e.g. "END"
	Terminator string

	// NotificationMarker starts every asynchronous notification, e.g. ">"
	NotificationMarker string

	// PasswordPrompt is written by the peer, without a newline, when it
	// requires a management password before accepting commands.
	PasswordPrompt string
}

// DefaultDialect returns the tokens used by the OpenVPN management interface.
func DefaultDialect() Dialect {
	return Dialect{
		SuccessPrefix:      "SUCCESS:",
		ErrorPrefix:        "ERROR:",
		Terminator:         "END",
		NotificationMarker: ">",
		PasswordPrompt:     "ENTER PASSWORD:",
	}
}

// Notification categories pushed by OpenVPN. The list is not exhaustive,
// unknown categories are passed through untouched.
const (
	CategoryByteCount    = "BYTECOUNT"
	CategoryByteCountCli = "BYTECOUNT_CLI"
	CategoryClient       = "CLIENT"
	CategoryEcho         = "ECHO"
	CategoryFatal        = "FATAL"
	CategoryHold         = "HOLD"
	CategoryInfo         = "INFO"
	CategoryLog          = "LOG"
	CategoryNeedOk       = "NEED-OK"
	CategoryNeedStr      = "NEED-STR"
	CategoryPassword     = "PASSWORD"
	CategoryState        = "STATE"
)
