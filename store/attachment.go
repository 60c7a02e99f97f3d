package store

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Attachment represents an ATTACH property. Exactly one representation is
// expected per row:
//
//   - URI: an external reference (http(s), content, ...)
//   - Binary: inline base64 content as delivered by a sync adapter
//   - a managed local file under the attachment directory, addressed through
//     a file:// URI
//
// Filename, extension and filesize metadata are derived lazily from whichever
// representation is present.
type Attachment struct {
	ID           int64
	ICalObjectID int64
	URI          string
	Binary       string
	FmtType      string
	Filename     string
	Filesize     *int64
	Extension    string
	Other        string
}

func AttachmentFromValues(v Values) *Attachment {
	objectID, ok := v.GetInt64("icalobject_id")
	if !ok || objectID == 0 {
		return nil
	}
	a := &Attachment{
		ICalObjectID: objectID,
		URI:          v.GetString("uri"),
		Binary:       v.GetString("binary"),
		FmtType:      v.GetString("fmttype"),
		Filename:     v.GetString("filename"),
		Filesize:     v.GetInt64Ptr("filesize"),
		Extension:    v.GetString("extension"),
		Other:        v.GetString("other"),
	}
	if a.URI == "" && a.Binary == "" {
		return nil
	}
	return a
}

func (a *Attachment) ToValues() Values {
	v := Values{"icalobject_id": a.ICalObjectID}
	putNonEmpty(v, "uri", a.URI)
	putNonEmpty(v, "binary", a.Binary)
	putNonEmpty(v, "fmttype", a.FmtType)
	putNonEmpty(v, "filename", a.Filename)
	if a.Filesize != nil {
		v["filesize"] = *a.Filesize
	}
	putNonEmpty(v, "extension", a.Extension)
	putNonEmpty(v, "other", a.Other)
	return v
}

// IsLocalFile reports whether the attachment is an app-managed local file.
func (a *Attachment) IsLocalFile() bool {
	return strings.HasPrefix(a.URI, "file://")
}

// LocalPath returns the filesystem path of a managed local file attachment.
func (a *Attachment) LocalPath() string {
	return strings.TrimPrefix(a.URI, "file://")
}

// DeriveMetadata fills Filename, Extension, Filesize and FmtType from the
// present representation. Existing non-empty values are kept; the derivation
// only fills gaps, so repeated calls are harmless.
func (a *Attachment) DeriveMetadata() {
	if a.IsLocalFile() {
		path := a.LocalPath()
		if a.Filename == "" {
			a.Filename = filepath.Base(path)
		}
		if a.Filesize == nil {
			if info, err := os.Stat(path); err == nil {
				size := info.Size()
				a.Filesize = &size
			}
		}
		if a.Extension == "" {
			a.Extension = filepath.Ext(path)
		}
		if a.FmtType == "" {
			if mt, err := mimetype.DetectFile(path); err == nil {
				a.FmtType = mt.String()
				if a.Extension == "" {
					a.Extension = mt.Extension()
				}
			}
		}
		return
	}

	if a.Binary != "" {
		data, err := base64.StdEncoding.DecodeString(a.Binary)
		if err != nil {
			return
		}
		if a.Filesize == nil {
			size := int64(len(data))
			a.Filesize = &size
		}
		mt := mimetype.Detect(data)
		if a.FmtType == "" {
			a.FmtType = mt.String()
		}
		if a.Extension == "" {
			a.Extension = mt.Extension()
		}
		return
	}

	if a.URI != "" {
		if a.Filename == "" {
			a.Filename = filepath.Base(a.URI)
		}
		if a.Extension == "" {
			a.Extension = filepath.Ext(a.URI)
		}
	}
}

// ListLocalAttachmentPaths returns the filesystem paths of every app-managed
// attachment file referenced by a row.
func (db *Database) ListLocalAttachmentPaths() ([]string, error) {
	rows, err := db.Query("SELECT uri FROM attachment WHERE uri LIKE 'file://%'")
	if err != nil {
		return nil, &StoreError{Op: "ListLocalAttachmentPaths", Err: err}
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, &StoreError{Op: "ListLocalAttachmentPaths", Err: err}
		}
		paths = append(paths, strings.TrimPrefix(uri, "file://"))
	}
	return paths, rows.Err()
}

// GetAttachment loads an attachment by its own row id.
func (db *Database) GetAttachment(id int64) (*Attachment, error) {
	var a Attachment
	var uri, binary, fmttype, filename, extension, other sql.NullString
	var filesize sql.NullInt64

	err := db.QueryRow(`
		SELECT id, icalobject_id, uri, binary, fmttype, filename, filesize, extension, other
		FROM attachment WHERE id = ?
	`, id).Scan(&a.ID, &a.ICalObjectID, &uri, &binary, &fmttype, &filename, &filesize, &extension, &other)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StoreError{Op: "GetAttachment", Err: err}
	}

	a.URI = uri.String
	a.Binary = binary.String
	a.FmtType = fmttype.String
	a.Filename = filename.String
	a.Extension = extension.String
	a.Other = other.String
	if filesize.Valid {
		a.Filesize = &filesize.Int64
	}
	return &a, nil
}

// UpdateAttachment writes back every mutable column of an attachment row.
func (db *Database) UpdateAttachment(a *Attachment) error {
	result, err := db.Exec(`
		UPDATE attachment SET
			uri = ?, binary = ?, fmttype = ?, filename = ?, filesize = ?, extension = ?, other = ?
		WHERE id = ?
	`,
		nullString(a.URI), nullString(a.Binary), nullString(a.FmtType),
		nullString(a.Filename), nullInt64(a.Filesize), nullString(a.Extension),
		nullString(a.Other), a.ID,
	)
	if err != nil {
		return &StoreError{Op: "UpdateAttachment", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &StoreError{Op: "UpdateAttachment", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MaterializeBinary writes inline base64 content out to the attachment
// directory and rewrites the row to a managed file:// URI. No-op for rows
// without inline content.
func (a *Attachment) MaterializeBinary(attachmentDir string) error {
	if a.Binary == "" {
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(a.Binary)
	if err != nil {
		return fmt.Errorf("failed to decode inline attachment content: %w", err)
	}

	if err := os.MkdirAll(attachmentDir, 0755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}

	name := a.Filename
	if name == "" {
		ext := a.Extension
		if ext == "" {
			ext = mimetype.Detect(data).Extension()
		}
		name = fmt.Sprintf("attachment-%d%s", a.ID, ext)
	}

	path := filepath.Join(attachmentDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write attachment file: %w", err)
	}

	a.URI = "file://" + path
	a.Binary = ""
	a.Filename = name
	size := int64(len(data))
	a.Filesize = &size
	return nil
}
