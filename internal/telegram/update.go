package telegram

// Update is the slice of a Telegram webhook payload the bot cares about.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	EditedMessage *Message       `json:"edited_message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

// Message is an inbound chat message.
type Message struct {
	Chat Chat   `json:"chat"`
	From *From  `json:"from"`
	Text string `json:"text"`
}

// Chat identifies where to send the reply.
type Chat struct {
	ID int64 `json:"id"`
}

// From identifies the sender. ID is the external identity the ledger keys
// users by.
type From struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
}

// CallbackQuery wraps the message a callback refers to.
type CallbackQuery struct {
	From    *From    `json:"from"`
	Message *Message `json:"message"`
}

// incoming picks the message out of whichever update field Telegram used.
// Callback queries carry the original sender on the query, not the message.
func (u *Update) incoming() *Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.EditedMessage != nil:
		return u.EditedMessage
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		msg := *u.CallbackQuery.Message
		if u.CallbackQuery.From != nil {
			msg.From = u.CallbackQuery.From
		}
		return &msg
	}
	return nil
}
