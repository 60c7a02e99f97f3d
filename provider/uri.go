package provider

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names of the content URI contract.
const (
	ParamCallerIsSyncAdapter = "CALLER_IS_SYNCADAPTER"
	ParamAccountName         = "ACCOUNT_NAME"
	ParamAccountType         = "ACCOUNT_TYPE"
)

// ArgumentError marks a malformed request: bad URI shape, unknown table,
// non-numeric id segment, or an inconsistent sync parameter set. It is the
// caller's mistake, never a store failure.
type ArgumentError struct {
	Reason string
}

func (e *ArgumentError) Error() string {
	return "invalid argument: " + e.Reason
}

func argErrorf(format string, args ...any) *ArgumentError {
	return &ArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// contractTables are the tables addressable through the content interface.
var contractTables = map[string]bool{
	"icalobject": true, "attendee": true, "category": true, "comment": true,
	"contact": true, "organizer": true, "relatedto": true, "resource": true,
	"collection": true, "attachment": true, "alarm": true, "unknown": true,
}

// Request is the decoded form of a content URI:
//
//	content://<authority>/<table>[/<id>]?CALLER_IS_SYNCADAPTER=<bool>&ACCOUNT_NAME=<s>&ACCOUNT_TYPE=<s>
type Request struct {
	Table       string
	ID          int64
	HasID       bool
	SyncAdapter bool
	AccountName string
	AccountType string
}

// ParseURI validates a raw content URI against the given authority and the
// sync gating rules. A request claiming sync-adapter identity without both
// account parameters is rejected outright.
func ParseURI(authority, raw string) (*Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, argErrorf("unparseable uri %q: %v", raw, err)
	}
	if u.Scheme != "content" {
		return nil, argErrorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host != authority {
		return nil, argErrorf("unknown authority %q", u.Host)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return nil, argErrorf("missing table segment")
	}
	if len(segments) > 2 {
		return nil, argErrorf("unrecognized path %q", u.Path)
	}

	table := segments[0]
	if !contractTables[table] {
		return nil, argErrorf("unknown table %q", table)
	}

	req := &Request{Table: table}

	if len(segments) == 2 {
		id, err := strconv.ParseInt(segments[1], 10, 64)
		if err != nil {
			return nil, argErrorf("non-numeric id segment %q", segments[1])
		}
		req.ID = id
		req.HasID = true
	}

	params := u.Query()
	if raw := params.Get(ParamCallerIsSyncAdapter); raw != "" {
		isSync, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, argErrorf("malformed %s value %q", ParamCallerIsSyncAdapter, raw)
		}
		req.SyncAdapter = isSync
	}
	req.AccountName = params.Get(ParamAccountName)
	req.AccountType = params.Get(ParamAccountType)

	if req.SyncAdapter && (req.AccountName == "" || req.AccountType == "") {
		return nil, argErrorf("%s requires both %s and %s",
			ParamCallerIsSyncAdapter, ParamAccountName, ParamAccountType)
	}

	return req, nil
}
