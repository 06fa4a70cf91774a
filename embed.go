package fdiadmin

import "embed"

//go:embed internal/dashboard/templates/*.html static
var Files embed.FS
