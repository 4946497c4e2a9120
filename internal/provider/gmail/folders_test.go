package gmail

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func TestFetchFolders(t *testing.T) {
	mux, a := newFakeGmail(t)
	mux.HandleFunc("GET /gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, &gmailapi.ListLabelsResponse{
			Labels: []*gmailapi.Label{
				{Id: "INBOX", Name: "INBOX", Type: "system"},
				{Id: "SENT", Name: "SENT", Type: "system"},
				{Id: "TRASH", Name: "TRASH", Type: "system"},
				{Id: "UNREAD", Name: "UNREAD", Type: "system"},
				{Id: "STARRED", Name: "STARRED", Type: "system"},
				{Id: "CATEGORY_PROMOTIONS", Name: "CATEGORY_PROMOTIONS", Type: "system"},
				{Id: "Label_7", Name: "Receipts", Type: "user"},
			},
		})
	})
	counts := map[string][2]int64{
		"INBOX":   {120, 7},
		"Label_7": {15, 2},
	}
	mux.HandleFunc("GET /gmail/v1/users/me/labels/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		writeJSON(t, w, &gmailapi.Label{
			Id:             id,
			MessagesTotal:  counts[id][0],
			MessagesUnread: counts[id][1],
		})
	})

	folders, err := a.FetchFolders(context.Background())
	if err != nil {
		t.Fatalf("FetchFolders failed: %v", err)
	}

	if !assert.Len(t, folders, 4) {
		return
	}

	byID := make(map[string]*models.Folder, len(folders))
	for _, f := range folders {
		byID[f.ProviderFolderID] = f
	}

	assert.Equal(t, models.FolderInbox, byID["INBOX"].Type)
	assert.True(t, byID["INBOX"].IsSystem)
	assert.Equal(t, 120, byID["INBOX"].MessageCount)
	assert.Equal(t, 7, byID["INBOX"].UnreadCount)
	assert.Equal(t, models.FolderSent, byID["SENT"].Type)
	assert.Equal(t, models.FolderTrash, byID["TRASH"].Type)
	if assert.Contains(t, byID, "Label_7") {
		assert.Equal(t, models.FolderCustom, byID["Label_7"].Type)
		assert.Equal(t, "Receipts", byID["Label_7"].Name)
		assert.False(t, byID["Label_7"].IsSystem)
		assert.Equal(t, 15, byID["Label_7"].MessageCount)
	}
}

func TestClassifyLabel(t *testing.T) {
	tests := []struct {
		name     string
		label    *gmailapi.Label
		wantType models.FolderType
		wantKeep bool
	}{
		{
			name:     "user label",
			label:    &gmailapi.Label{Id: "Label_3", Name: "Projects", Type: "user"},
			wantType: models.FolderCustom,
			wantKeep: true,
		},
		{
			name:     "inbox",
			label:    &gmailapi.Label{Id: "INBOX", Type: "system"},
			wantType: models.FolderInbox,
			wantKeep: true,
		},
		{
			name:     "drafts",
			label:    &gmailapi.Label{Id: "DRAFT", Type: "system"},
			wantType: models.FolderDrafts,
			wantKeep: true,
		},
		{
			name:     "spam",
			label:    &gmailapi.Label{Id: "SPAM", Type: "system"},
			wantType: models.FolderSpam,
			wantKeep: true,
		},
		{
			name:     "state label is not a folder",
			label:    &gmailapi.Label{Id: "IMPORTANT", Type: "system"},
			wantKeep: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folderType, keep := classifyLabel(tt.label)
			assert.Equal(t, tt.wantKeep, keep)
			if tt.wantKeep {
				assert.Equal(t, tt.wantType, folderType)
			}
		})
	}
}

func TestCreateFolder(t *testing.T) {
	mux, a := newFakeGmail(t)

	var (
		mu      sync.Mutex
		created []gmailapi.Label
	)
	mux.HandleFunc("POST /gmail/v1/users/me/labels", func(w http.ResponseWriter, r *http.Request) {
		var label gmailapi.Label
		if err := json.NewDecoder(r.Body).Decode(&label); err != nil {
			t.Errorf("failed to decode label request: %v", err)
		}
		mu.Lock()
		created = append(created, label)
		mu.Unlock()

		label.Id = "Label_9"
		writeJSON(t, w, &label)
	})

	folder, err := a.CreateFolder(context.Background(), "Receipts")
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}

	assert.Equal(t, "Label_9", folder.ProviderFolderID)
	assert.Equal(t, "Receipts", folder.Name)
	assert.Equal(t, models.FolderCustom, folder.Type)

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, created, 1) {
		assert.Equal(t, "Receipts", created[0].Name)
		assert.Equal(t, "labelShow", created[0].LabelListVisibility)
	}
}
