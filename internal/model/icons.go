package model

// Centralized icons for the UI components
// Using simple single-width characters for consistent terminal rendering
const (
	IconDynamic     = "○" // Shared library
	IconStatic      = "●" // Static archive
	IconFramework   = "◇" // Framework bundle
	IconSearchPath  = "→" // Search path
	IconPassThrough = "·" // Raw flag
	IconDropped     = "✗" // Dropped token
)

// KindIcon returns the icon shown next to a directive of kind k.
func KindIcon(k DirectiveKind) string {
	switch k {
	case KindLinkDynamic:
		return IconDynamic
	case KindLinkStatic:
		return IconStatic
	case KindLinkFramework:
		return IconFramework
	case KindSearchPath:
		return IconSearchPath
	default:
		return IconPassThrough
	}
}
