package pare

import "github.com/amitray007/pare/core"

// Inner exposes the underlying core.Dispatcher for advanced use (e.g., direct
// registry or gate access in tests).  Prefer the high-level API for normal
// usage.
func (s *Service) Inner() *core.Dispatcher { return s.inner }
