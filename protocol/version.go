package protocol

import "strings"

// VersionConfig is the very first message either side sends: it lets both
// ends refuse to continue the handshake against an incompatible build
// before any session state has been created.
type VersionConfig struct {
	Code      string
	Revision  string
	BuildTime string
	Mode      Mode
}

func (m VersionConfig) Type() MessageType { return TypeVersionConfig }

// IsSimilar exports isSimilar for callers outside the protocol package
// (session's version-exchange step); k is 1+strictVersionLevel per the
// handshake's compatibility rule.
func IsSimilar(local, remote VersionConfig, k int) bool {
	return isSimilar(local, remote, k)
}

// isSimilar reports whether local and remote builds are close enough to
// continue the handshake. Revisions are compared on the first k characters
// of their short-SHA so that a trivial rebuild (same source, different
// timestamp-only revision suffix some toolchains append) still matches.
func isSimilar(local, remote VersionConfig, k int) bool {
	if local.Code != remote.Code {
		return false
	}
	lr, rr := local.Revision, remote.Revision
	if k > 0 {
		lr = truncate(lr, k)
		rr = truncate(rr, k)
	}
	return strings.EqualFold(lr, rr)
}

func truncate(s string, k int) string {
	if len(s) <= k {
		return s
	}
	return s[:k]
}
