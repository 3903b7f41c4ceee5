package profile

// DefaultID is the locale used when a client does not ask for one.
const DefaultID = "zh-CN"

// Profile carries the localized copy shown by a chat widget.
type Profile struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Greeting    string `json:"greeting"`
	Placeholder string `json:"placeholder"`
	SendLabel   string `json:"sendLabel"`
	FailureText string `json:"failureText"`
}

// Seed provides the built-in widget profiles.
func Seed() []Profile {
	return []Profile{
		{
			ID:          "zh-CN",
			Title:       "AI 聊天助手",
			Greeting:    "你好！我是 AI 助手，有什么可以帮助你的吗？",
			Placeholder: "输入消息...",
			SendLabel:   "发送",
			FailureText: "抱歉，连接出现了问题，请稍后再试。",
		},
		{
			ID:          "en-US",
			Title:       "AI Chat Assistant",
			Greeting:    "Hi! I'm your AI assistant. How can I help?",
			Placeholder: "Type a message...",
			SendLabel:   "Send",
			FailureText: "Sorry, something went wrong with the connection. Please try again later.",
		},
	}
}
