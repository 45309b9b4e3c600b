package protocol

// Method is a supported MCP protocol operation.
type Method string

const (
	MethodInitialize Method = "initialize"
	MethodToolsList  Method = "tools/list"
	MethodToolsCall  Method = "tools/call"
)

// ParseMethod maps a request method string onto the closed set of
// supported operations.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodInitialize, MethodToolsList, MethodToolsCall:
		return Method(s), true
	default:
		return "", false
	}
}
