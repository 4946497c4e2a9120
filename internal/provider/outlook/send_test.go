package outlook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/paul2999Git/mailapp-sub000/internal/provider"
	"github.com/stretchr/testify/assert"
)

func TestSendMail(t *testing.T) {
	t.Run("submits through the sendMail endpoint", func(t *testing.T) {
		mux, a := newFakeOutlook(t)

		var (
			mu       sync.Mutex
			requests []sendMailRequest
		)
		mux.HandleFunc("POST /me/sendMail", func(w http.ResponseWriter, r *http.Request) {
			var req sendMailRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("failed to decode send request: %v", err)
			}
			mu.Lock()
			requests = append(requests, req)
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		})

		err := a.SendMail(context.Background(), &provider.OutgoingMessage{
			To:       []string{"Bob <bob@example.com>"},
			Cc:       []string{"carol@example.com"},
			Subject:  "Hi",
			BodyText: "Hello from the test.",
			Attachments: []provider.OutgoingAttachment{
				{Filename: "data.csv", MimeType: "text/csv", Content: []byte("a,b\n1,2")},
			},
		})
		if err != nil {
			t.Fatalf("SendMail failed: %v", err)
		}

		mu.Lock()
		defer mu.Unlock()
		if !assert.Len(t, requests, 1) {
			return
		}

		req := requests[0]
		assert.True(t, req.SaveToSentItems)
		if !assert.NotNil(t, req.Message) {
			return
		}
		assert.Equal(t, "Hi", req.Message.Subject)
		if assert.Len(t, req.Message.ToRecipients, 1) {
			assert.Equal(t, "Bob", req.Message.ToRecipients[0].EmailAddress.Name)
			assert.Equal(t, "bob@example.com", req.Message.ToRecipients[0].EmailAddress.Address)
		}
		if assert.Len(t, req.Message.CcRecipients, 1) {
			assert.Equal(t, "carol@example.com", req.Message.CcRecipients[0].EmailAddress.Address)
		}
		// Graph fills in the sender when From is not overridden.
		assert.Nil(t, req.Message.From)
		if assert.NotNil(t, req.Message.Body) {
			assert.Equal(t, "text", req.Message.Body.ContentType)
			assert.Equal(t, "Hello from the test.", req.Message.Body.Content)
		}
		if assert.Len(t, req.Message.Attachments, 1) {
			att := req.Message.Attachments[0]
			assert.Equal(t, "#microsoft.graph.fileAttachment", att.ODataType)
			assert.Equal(t, "data.csv", att.Name)
			decoded, decodeErr := base64.StdEncoding.DecodeString(att.ContentBytes)
			assert.NoError(t, decodeErr)
			assert.Equal(t, []byte("a,b\n1,2"), decoded)
		}
	})

	t.Run("html body wins over text", func(t *testing.T) {
		gm := outgoingToGraph(&provider.OutgoingMessage{
			To:       []string{"bob@example.com"},
			BodyText: "plain",
			BodyHTML: "<p>rich</p>",
		})

		if assert.NotNil(t, gm.Body) {
			assert.Equal(t, "html", gm.Body.ContentType)
			assert.Equal(t, "<p>rich</p>", gm.Body.Content)
		}
	})

	t.Run("requires a recipient", func(t *testing.T) {
		mux, a := newFakeOutlook(t)
		mux.HandleFunc("POST /me/sendMail", func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request should reach the provider")
		})

		err := a.SendMail(context.Background(), &provider.OutgoingMessage{Subject: "Hi"})

		var valErr *provider.ValidationError
		assert.True(t, errors.As(err, &valErr))
	})
}

func TestSaveDraft(t *testing.T) {
	mux, a := newFakeOutlook(t)

	var (
		mu     sync.Mutex
		drafts []graphMessage
	)
	mux.HandleFunc("POST /me/messages", func(w http.ResponseWriter, r *http.Request) {
		var body graphMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode draft request: %v", err)
		}
		mu.Lock()
		drafts = append(drafts, body)
		mu.Unlock()

		body.ID = "AAMk-draft-1"
		body.IsDraft = true
		writeJSON(t, w, &body)
	})

	// Graph holds recipient-less drafts, so none is supplied here.
	id, err := a.SaveDraft(context.Background(), &provider.OutgoingMessage{
		Subject:  "Half-written",
		BodyText: "Note to self",
	})
	if err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}

	assert.Equal(t, "AAMk-draft-1", id)

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, drafts, 1) {
		assert.Equal(t, "Half-written", drafts[0].Subject)
		assert.Empty(t, drafts[0].ToRecipients)
	}
}
