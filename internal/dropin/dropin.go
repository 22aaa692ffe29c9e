// Package dropin generates PipeWire drop-in descriptors that declare one
// virtual audio node per discovered light. Generation is deterministic:
// the same light always yields the same file name, node name and bytes,
// because the external audio subsystem treats the node name as a stable
// identity across restarts.
package dropin

import (
	"fmt"
	"strings"

	"github.com/dokzlo13/lightwire/internal/light"
)

// DefaultPrefix tags generated files and node names so they can be told
// apart from user-authored configuration.
const DefaultPrefix = "lightwire"

// marker is the first line of every generated file; Clean only touches
// files that carry it.
const marker = "# Generated by lightwire. Do not edit."

// Descriptor is one generated drop-in: where it goes and what it declares.
type Descriptor struct {
	FileName string
	NodeName string
	Content  string
}

// Render builds the descriptor for one light. Reproducible byte-for-byte
// for the same provider name, label, id and prefix.
func Render(providerName, label string, id light.ID, prefix string) Descriptor {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	slug := Slugify(label)
	nodeName := fmt.Sprintf("%s.%s.%s", prefix, providerName, slug)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", marker)
	fmt.Fprintf(&b, "# light: %s\n", id)
	b.WriteString("context.objects = [\n")
	b.WriteString("    {   factory = adapter\n")
	b.WriteString("        args = {\n")
	b.WriteString("            factory.name     = support.null-audio-sink\n")
	fmt.Fprintf(&b, "            node.name        = %q\n", nodeName)
	fmt.Fprintf(&b, "            node.description = %q\n", fmt.Sprintf("%s (%s)", label, providerName))
	b.WriteString("            media.class      = Audio/Sink\n")
	b.WriteString("            audio.position   = [ FL FR ]\n")
	b.WriteString("            monitor.channel-volumes = true\n")
	b.WriteString("        }\n")
	b.WriteString("    }\n")
	b.WriteString("]\n")

	return Descriptor{
		FileName: fmt.Sprintf("%s-%s-%s.conf", prefix, providerName, slug),
		NodeName: nodeName,
		Content:  b.String(),
	}
}

// NodeName returns the virtual node name a light maps to, without
// rendering the whole descriptor.
func NodeName(providerName, label, prefix string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s.%s.%s", prefix, providerName, Slugify(label))
}

// Slugify turns a human label into an identity-safe name: lowercase,
// runs of non-alphanumerics collapsed to single dashes, edges trimmed.
func Slugify(label string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
