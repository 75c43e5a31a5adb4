package models

import (
	"encoding/json"
	"errors"
)

// Photo is either Existing (persisted, carries a store id) or Pending
// (captured locally, identified only by a local key until uploaded).
type Photo struct {
	id       string
	localKey string
	url      string
}

func ExistingPhoto(id, url string) Photo {
	return Photo{id: id, url: url}
}

func PendingPhoto(localKey, uri string) Photo {
	return Photo{localKey: localKey, url: uri}
}

func (p Photo) IsNew() bool {
	return p.id == ""
}

// ID returns the persisted id; ok is false for pending photos.
func (p Photo) ID() (id string, ok bool) {
	return p.id, p.id != ""
}

// LocalKey returns the local key; ok is false for existing photos.
func (p Photo) LocalKey() (key string, ok bool) {
	if p.id != "" {
		return "", false
	}
	return p.localKey, true
}

func (p Photo) URL() string {
	return p.url
}

type photoJSON struct {
	ID       string `json:"id,omitempty"`
	LocalKey string `json:"local_key,omitempty"`
	URL      string `json:"url"`
	IsNew    bool   `json:"is_new"`
}

func (p Photo) MarshalJSON() ([]byte, error) {
	return json.Marshal(photoJSON{ID: p.id, LocalKey: p.localKey, URL: p.url, IsNew: p.IsNew()})
}

func (p *Photo) UnmarshalJSON(data []byte) error {
	var raw photoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case !raw.IsNew && raw.ID != "":
		*p = ExistingPhoto(raw.ID, raw.URL)
	case raw.IsNew && raw.LocalKey != "":
		*p = PendingPhoto(raw.LocalKey, raw.URL)
	default:
		return errors.New("photo needs an id when persisted or a local_key when new")
	}
	return nil
}

// PhotoPayload is the content of a pending photo handed to the photo store.
type PhotoPayload struct {
	LocalKey    string
	FileName    string
	ContentType string
	Content     []byte
}
