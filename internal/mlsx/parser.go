package mlsx

import (
	"strconv"
	"strings"
	"time"

	"github.com/GiacomoTortora/commons-net/internal/neterr"
)

var typeToEnum = map[string]EntryType{
	"file": TypeFile,
	"cdir": TypeDir,
	"pdir": TypeDir,
	"dir":  TypeDir,
}

// unixPerms maps an octal mode digit (0-7) to the permissions it grants,
// in the same order as the original's UNIX_PERMS table.
var unixPerms = [8][]Permission{
	{},
	{ExecutePermission},
	{WritePermission},
	{ExecutePermission, WritePermission},
	{ReadPermission},
	{ReadPermission, ExecutePermission},
	{ReadPermission, WritePermission},
	{ReadPermission, WritePermission, ExecutePermission},
}

var unixGroups = [3]AccessGroup{UserAccess, GroupAccess, WorldAccess}

// ParseGMTDateTime parses a fact timestamp of the form yyyyMMddHHmmss, or
// yyyyMMddHHmmss.sss with fractional seconds, as UTC. The entire string
// must be consumed; trailing or malformed characters are a parse error.
func ParseGMTDateTime(timestamp string) (time.Time, error) {
	layout := "20060102150405"
	if strings.Contains(timestamp, ".") {
		layout = "20060102150405.000"
	}
	t, err := time.Parse(layout, timestamp)
	if err != nil {
		return time.Time{}, neterr.New(neterr.Protocol, "invalid MLSx timestamp: "+timestamp, err)
	}
	return t.UTC(), nil
}

// ParseEntry parses one MLST/MLSD listing line. A line beginning with a
// single leading space is an MLST-style entry bearing only a pathname
// (the leading space is the marker and is stripped, not data). Malformed
// fact lists (no "=" in a fact, a fact list not terminated with ";", a
// missing or empty pathname) are reported as a neterr.Protocol error.
func ParseEntry(entry string) (*Entry, error) {
	if strings.HasPrefix(entry, " ") {
		if len(entry) <= 1 {
			return nil, neterr.New(neterr.Protocol, "MLSx entry has no pathname", nil)
		}
		return &Entry{RawListing: entry, Name: entry[1:]}, nil
	}

	parts := strings.SplitN(entry, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, neterr.New(neterr.Protocol, "MLSx entry missing pathname", nil)
	}

	factList := parts[0]
	if !strings.HasSuffix(factList, ";") {
		return nil, neterr.New(neterr.Protocol, "MLSx fact list must end with ';'", nil)
	}

	e := &Entry{RawListing: entry, Name: parts[1]}
	hasUnixMode := strings.Contains(strings.ToLower(factList), "unix.mode=")

	for _, fact := range strings.Split(factList, ";") {
		if fact == "" {
			continue
		}
		factParts := strings.SplitN(fact, "=", 2)
		if len(factParts) != 2 {
			return nil, neterr.New(neterr.Protocol, "MLSx fact missing '=': "+fact, nil)
		}
		name := strings.ToLower(factParts[0])
		value := factParts[1]
		if value == "" {
			continue
		}
		if err := applyFact(e, name, value, hasUnixMode); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func applyFact(e *Entry, name, value string, hasUnixMode bool) error {
	switch name {
	case "size":
		size, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return neterr.New(neterr.Protocol, "invalid size fact: "+value, err)
		}
		e.Size = size
		e.HasSize = true
		return nil

	case "modify":
		t, err := ParseGMTDateTime(value)
		if err != nil {
			return err
		}
		e.Modified = t
		e.HasModify = true
		return nil

	case "type":
		if et, ok := typeToEnum[strings.ToLower(value)]; ok {
			e.Type = et
		} else {
			e.Type = TypeUnknown
		}
		return nil

	default:
		if strings.HasPrefix(name, "unix.") {
			applyUnixFact(e, strings.TrimPrefix(name, "unix."), value)
		} else if !hasUnixMode && name == "perm" {
			applyPermFact(e, strings.ToLower(value))
		}
		return nil
	}
}

func applyUnixFact(e *Entry, unixFact, value string) {
	switch unixFact {
	case "group":
		e.Group = value
	case "owner":
		e.User = value
	case "mode":
		applyUnixMode(e, value)
	}
}

// applyUnixMode reads the last 3 characters of value as octal
// user/group/world digits, same as the original's handleUnixMode.
func applyUnixMode(e *Entry, value string) {
	if len(value) < 3 {
		return
	}
	digits := value[len(value)-3:]
	for i := 0; i < 3; i++ {
		ch := digits[i] - '0'
		if ch > 7 {
			continue
		}
		for _, p := range unixPerms[ch] {
			e.SetPermission(unixGroups[i], p, true)
		}
	}
}

// applyPermFact interprets the fallback "perm" fact when no UNIX.mode fact
// is present. Flags not mapped to one of the three UNIX triads (e.g. the
// "f" rename flag) are intentionally ignored, matching the original's own
// unresolved TODO on that point.
func applyPermFact(e *Entry, valueLower string) {
	for _, c := range valueLower {
		switch c {
		case 'a', 'c', 'd', 'm', 'p', 'w':
			e.SetPermission(UserAccess, WritePermission, true)
		case 'e':
			e.SetPermission(UserAccess, ReadPermission, true)
		case 'l':
			e.SetPermission(UserAccess, ExecutePermission, true)
		case 'r':
			e.SetPermission(UserAccess, ReadPermission, true)
		}
	}
}
