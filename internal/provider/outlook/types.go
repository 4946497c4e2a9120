package outlook

import "time"

// Wire structs for the slice of the Graph mail API this adapter uses.
// Field sets are trimmed to what $select asks for.

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type graphUser struct {
	DisplayName       string `json:"displayName,omitempty"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
}

type graphEmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphItemBody struct {
	ContentType string `json:"contentType,omitempty"`
	Content     string `json:"content,omitempty"`
}

type graphFlag struct {
	FlagStatus string `json:"flagStatus,omitempty"`
}

type graphHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type graphAttachment struct {
	ODataType    string `json:"@odata.type,omitempty"`
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	Size         int64  `json:"size,omitempty"`
	IsInline     bool   `json:"isInline,omitempty"`
	ContentID    string `json:"contentId,omitempty"`
	ContentBytes string `json:"contentBytes,omitempty"`
}

type graphMessage struct {
	ID                     string            `json:"id,omitempty"`
	Subject                string            `json:"subject,omitempty"`
	BodyPreview            string            `json:"bodyPreview,omitempty"`
	InternetMessageID      string            `json:"internetMessageId,omitempty"`
	InternetMessageHeaders []graphHeader     `json:"internetMessageHeaders,omitempty"`
	From                   *graphRecipient   `json:"from,omitempty"`
	ToRecipients           []graphRecipient  `json:"toRecipients,omitempty"`
	CcRecipients           []graphRecipient  `json:"ccRecipients,omitempty"`
	BccRecipients          []graphRecipient  `json:"bccRecipients,omitempty"`
	ReplyTo                []graphRecipient  `json:"replyTo,omitempty"`
	SentDateTime           *time.Time        `json:"sentDateTime,omitempty"`
	ReceivedDateTime       *time.Time        `json:"receivedDateTime,omitempty"`
	Body                   *graphItemBody    `json:"body,omitempty"`
	Flag                   *graphFlag        `json:"flag,omitempty"`
	IsRead                 *bool             `json:"isRead,omitempty"`
	IsDraft                bool              `json:"isDraft,omitempty"`
	HasAttachments         bool              `json:"hasAttachments,omitempty"`
	Categories             []string          `json:"categories,omitempty"`
	Attachments            []graphAttachment `json:"attachments,omitempty"`
}

type graphFolder struct {
	ID           string `json:"id,omitempty"`
	DisplayName  string `json:"displayName,omitempty"`
	TotalCount   int    `json:"totalItemCount,omitempty"`
	UnreadCount  int    `json:"unreadItemCount,omitempty"`
	ChildFolders int    `json:"childFolderCount,omitempty"`
}

type messageList struct {
	Value    []graphMessage `json:"value"`
	NextLink string         `json:"@odata.nextLink,omitempty"`
}

type folderList struct {
	Value    []graphFolder `json:"value"`
	NextLink string        `json:"@odata.nextLink,omitempty"`
}

type sendMailRequest struct {
	Message         *graphMessage `json:"message"`
	SaveToSentItems bool          `json:"saveToSentItems"`
}
