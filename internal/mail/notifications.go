package mail

import "fmt"

// SubmittedMessage はアイテム提出時の通知メールを組み立てる。
func SubmittedMessage(to, itemTitle string) Message {
	return Message{
		To:      to,
		Subject: "Portfolio item submitted",
		Body:    fmt.Sprintf("Your portfolio item %q was submitted and is awaiting review.", itemTitle),
	}
}

// PublishedMessage はアイテム公開時の通知メールを組み立てる。
func PublishedMessage(to, itemTitle string) Message {
	return Message{
		To:      to,
		Subject: "Portfolio item published",
		Body:    fmt.Sprintf("Your portfolio item %q is now published and visible to others.", itemTitle),
	}
}
