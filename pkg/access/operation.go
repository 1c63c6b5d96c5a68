package access

import (
	"strings"

	"github.com/nicholas-fedor/minigit/pkg/types"
)

// Protocol service markers.
const (
	uploadPackService  = "git-upload-pack"
	receivePackService = "git-receive-pack"
)

// RequestSignals is the part of a request the operation classifier reads.
type RequestSignals interface {
	// TargetDescriptor is the request path.
	TargetDescriptor() string
	// QueryMarkers is the raw query string.
	QueryMarkers() string
}

// ClassifyOperation maps a protocol request to the operation it performs.
// Query markers are inspected before the target so that ref advertisement
// (info/refs?service=...) is attributed to the service it precedes.
func ClassifyOperation(signals RequestSignals) types.Operation {
	for _, marker := range []string{signals.QueryMarkers(), signals.TargetDescriptor()} {
		switch {
		case strings.Contains(marker, uploadPackService):
			return types.OperationFetch
		case strings.Contains(marker, receivePackService):
			return types.OperationPush
		}
	}

	return types.OperationInfoRefs
}
