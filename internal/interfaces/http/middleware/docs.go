package middleware

import (
	"net/netip"
	"strings"

	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DocsConfig gates the OpenAPI document and the docs UI.
type DocsConfig struct {
	Enabled bool
	// AllowedIPs accepts single addresses and CIDR prefixes; empty allows everyone.
	AllowedIPs []string
}

// DocsAccess hides the docs when disabled and restricts them to AllowedIPs.
// Unparseable entries are ignored.
func DocsAccess(cfg DocsConfig) gin.HandlerFunc {
	var prefixes []netip.Prefix
	for _, s := range cfg.AllowedIPs {
		if strings.Contains(s, "/") {
			if p, err := netip.ParsePrefix(s); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	restricted := len(cfg.AllowedIPs) > 0

	return func(c *gin.Context) {
		if !cfg.Enabled {
			abort(c, dto.ErrCodeNotFound, "API documentation is not available")
			return
		}
		if restricted && !ipAllowed(c.ClientIP(), prefixes) {
			abort(c, dto.ErrCodeForbidden, "Access to API documentation is restricted")
			return
		}
		c.Next()
	}
}

func ipAllowed(ip string, prefixes []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
