package provider

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"jtxboard/store"
)

// OpenFile opens the content of the addressed attachment row for reading.
// Managed local files stream from disk, inline base64 content decodes in
// memory, and externally-referenced URIs are not locally streamable.
func (p *Provider) OpenFile(rawURI string) (io.ReadCloser, error) {
	a, err := p.attachmentForURI(rawURI)
	if err != nil {
		return nil, err
	}

	if a.IsLocalFile() {
		f, err := os.Open(a.LocalPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open attachment file: %w", err)
		}
		return f, nil
	}

	if a.Binary != "" {
		data, err := base64.StdEncoding.DecodeString(a.Binary)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline attachment content: %w", err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	return nil, fmt.Errorf("attachment %d references external content %q, not locally streamable", a.ID, a.URI)
}

// WriteFile stores the reader's bytes as the attachment's managed local file
// and rewrites the row to reference it. Any previous inline content is
// dropped in favor of the file.
func (p *Provider) WriteFile(rawURI string, r io.Reader) error {
	a, err := p.attachmentForURI(rawURI)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.attachmentDir, 0755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}

	name := a.Filename
	if name == "" {
		name = "attachment-" + strconv.FormatInt(a.ID, 10) + a.Extension
	}
	path := filepath.Join(p.attachmentDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create attachment file: %w", err)
	}
	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write attachment file: %w", err)
	}

	a.URI = "file://" + path
	a.Binary = ""
	a.Filename = name
	a.Filesize = &size
	a.DeriveMetadata()
	return p.db.UpdateAttachment(a)
}

// attachmentForURI resolves an attachment row from an id-addressed content
// URI, applying the caller's collection scope.
func (p *Provider) attachmentForURI(rawURI string) (*store.Attachment, error) {
	req, err := ParseURI(p.authority, rawURI)
	if err != nil {
		return nil, err
	}
	if req.Table != "attachment" || !req.HasID {
		return nil, argErrorf("file access requires an id-addressed attachment URI")
	}

	a, err := p.db.GetAttachment(req.ID)
	if err != nil {
		return nil, err
	}

	parent, err := p.db.GetICalObject(a.ICalObjectID)
	if err != nil {
		return nil, err
	}
	collection, err := p.db.GetCollection(parent.CollectionID)
	if err != nil {
		return nil, err
	}
	if err := p.checkCollectionAccess(req, collection); err != nil {
		return nil, err
	}
	return a, nil
}
