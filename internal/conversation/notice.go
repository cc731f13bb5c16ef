package conversation

// NoticeLevel is the severity shown to the user.
type NoticeLevel string

const (
	LevelInfo    NoticeLevel = "info"
	LevelWarning NoticeLevel = "warning"
	LevelError   NoticeLevel = "error"
)

// NoticeCode identifies a degraded outcome.
type NoticeCode string

const (
	CodeNoText              NoticeCode = "no_text"
	CodeExtractionFailed    NoticeCode = "extraction_failed"
	CodeOCRFailed           NoticeCode = "ocr_failed"
	CodeSynthesisFailed     NoticeCode = "synthesis_failed"
	CodeAssistantFailed     NoticeCode = "assistant_failed"
	CodeUnsupportedFileType NoticeCode = "unsupported_file_type"
	CodeOCRFallback         NoticeCode = "ocr_fallback"
)

// Notice is a user-visible report attached to an outcome. A notice never
// means the action was aborted.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    NoticeCode  `json:"code"`
	Message string      `json:"message"`
}

// User-facing messages.
const (
	MsgNoText           = "No readable text found in the uploaded file."
	MsgUnsupportedType  = "Unsupported file type"
	msgImageErrorPrefix = "Error analyzing image: "
	msgReplyErrorPrefix = "Error generating response: "
	msgOCRFallback      = "No text layer found; visually analyzed %d PDF pages."
)

func info(code NoticeCode, msg string) Notice {
	return Notice{Level: LevelInfo, Code: code, Message: msg}
}

func warning(code NoticeCode, msg string) Notice {
	return Notice{Level: LevelWarning, Code: code, Message: msg}
}

func failure(code NoticeCode, msg string) Notice {
	return Notice{Level: LevelError, Code: code, Message: msg}
}
