package outputtask

import (
	"strings"

	"github.com/go-logfmt/logfmt"
)

// KVParser recognizes simple "key=value key2=value2" lines, splitting on
// whitespace and then on the first "=" in each token. Values are not
// quote-aware; a value containing a space belongs in a logfmt-formatted
// line instead, handled by LogfmtParser.
func KVParser(line string) map[string]string {
	out := make(map[string]string)
	for _, tok := range strings.Fields(line) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// LogfmtParser recognizes github.com/go-logfmt/logfmt-encoded lines:
// space-separated key=value pairs with double-quoted values supporting
// embedded spaces and escapes. A line that fails to decode (not logfmt at
// all) yields an empty map so it falls through to the next configured
// parser rather than aborting reconciliation.
func LogfmtParser(line string) map[string]string {
	out := make(map[string]string)
	d := logfmt.NewDecoder(strings.NewReader(line))
	for d.ScanRecord() {
		for d.ScanKeyval() {
			out[string(d.Key())] = string(d.Value())
		}
	}
	if d.Err() != nil {
		return map[string]string{}
	}
	return out
}

// ParserByName resolves one of the bundled Parser implementations by the
// name a job's config.OutputSpec.Parsers list uses ("kv", "logfmt"). It
// returns false for an unrecognized name.
func ParserByName(name string) (Parser, bool) {
	switch name {
	case "kv":
		return KVParser, true
	case "logfmt":
		return LogfmtParser, true
	default:
		return nil, false
	}
}
