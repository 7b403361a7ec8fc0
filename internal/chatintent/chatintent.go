// Package chatintent classifies an inbound chat message into one of the
// three queue intents (issue / query / cancel) and renders the reply
// text, decoupled from any chat SDK so it is testable without a webhook
// signature or network call.
package chatintent

import "fmt"

type Intent string

const (
	IntentIssue  Intent = "issue"
	IntentQuery  Intent = "query"
	IntentCancel Intent = "cancel"
	IntentNone   Intent = "none"
)

var issueKeywords = map[string]bool{
	"!我要抽號": true, "抽號": true, "取號": true, "我要取號": true,
}

var queryKeywords = map[string]bool{
	"查詢": true, "!查詢目前排隊進度": true,
}

var cancelKeywords = map[string]bool{
	"取消": true, "!取消排隊": true,
}

// Classify maps raw message text to the intent it expresses.
// Unrecognized text classifies as IntentNone: the handler stays silent
// rather than replying to every message in a group chat.
func Classify(text string) Intent {
	switch {
	case issueKeywords[text]:
		return IntentIssue
	case queryKeywords[text]:
		return IntentQuery
	case cancelKeywords[text]:
		return IntentCancel
	default:
		return IntentNone
	}
}

// Binding is the chat user's most recently bound ticket, as stored under
// line_user:{user_id}.
type Binding struct {
	TicketID int64
	Service  string
}

// Status is the subset of a ticket view the reply copy needs.
type Status struct {
	Status        string
	Number        int64
	AheadCount    int64
	Counter       string
	CurrentNumber int64
}

func (s Status) passed() bool {
	return s.Status == "serving" && s.CurrentNumber > s.Number
}

// IssueReply renders the reply for the issue intent. boundStatus describes
// any ticket currently bound to this chat user; when it is still waiting
// (see StillWaiting) the "already in line" reply is rendered from it.
// Otherwise the issued reply is rendered from fresh and viewURL, so fresh
// must be non-nil in that case.
func IssueReply(boundStatus *Status, fresh *Status, viewURL string) string {
	if boundStatus != nil && (boundStatus.Status == "waiting" || (boundStatus.Status == "serving" && !boundStatus.passed())) {
		return fmt.Sprintf("您已在排隊中！\n您的號碼：%d\n前面還有：%d 人", boundStatus.Number, boundStatus.AheadCount)
	}
	return fmt.Sprintf("【@通知 取號成功】\n您的號碼：%d\n\n查詢線上進度：\n%s", fresh.Number, viewURL)
}

// StillWaiting reports whether a bound ticket's status should be treated
// as "already in queue" rather than stale — the issue intent re-issues a
// ticket only when this is false.
func StillWaiting(s *Status) bool {
	if s == nil {
		return false
	}
	if s.Status == "waiting" {
		return true
	}
	return s.Status == "serving" && !s.passed()
}

// QueryReply renders the reply for the query intent. lobbyCurrentNumber
// is only used when the user has no bound ticket.
func QueryReply(bound *Status, lobbyCurrentNumber *int64) string {
	if bound == nil {
		if lobbyCurrentNumber == nil {
			return "【@通知 尚未取號】\n目前大廳叫號：尚未開始\n若要加入排隊，請點取選單或輸入「我要抽號」。"
		}
		return fmt.Sprintf("【@通知 尚未取號】\n目前大廳叫號：%d\n若要加入排隊，請點取選單或輸入「我要抽號」。", *lobbyCurrentNumber)
	}

	switch {
	case bound.Status == "waiting":
		return fmt.Sprintf("【@通知 排隊狀態】：\n- 目前叫到：%d\n- 您的號碼：%d\n- 前面還有：%d 人",
			bound.CurrentNumber, bound.Number, bound.AheadCount)
	case bound.Status == "serving" && !bound.passed():
		return fmt.Sprintf("【@通知 您正在服務中】您的號碼： %d \n請儘速前往櫃台: %s", bound.Number, bound.Counter)
	default:
		return fmt.Sprintf("【@通知 服務結束或已過號】\n您的號碼： %d \n目前叫到：%d。\n若需重新排隊，請點取選單或輸入「我要抽號」。",
			bound.Number, bound.CurrentNumber)
	}
}

// CancelReply renders the reply for the cancel intent.
func CancelReply(hadBinding bool) string {
	if hadBinding {
		return "【@通知 已取消排隊】"
	}
	return "【@通知 您沒有排隊】"
}
