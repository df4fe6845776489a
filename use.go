package vela

import (
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/phanxgames/vela/vdoc"
)

var errNoLoader = errors.New("no loader configured")

// useRef is the reference carried by a NodeUse. generation changes whenever
// the node is disposed or its scene destroyed; a load started under an
// older generation is discarded on arrival.
type useRef struct {
	URL        string // empty for same-document references
	Fragment   string
	generation uint64
	resolved   bool
}

// Reference returns the document URL and fragment a use node points at.
// The URL is empty for references into the node's own document.
func (n *Node) Reference() (docURL, fragment string) {
	if n.use == nil {
		return "", ""
	}
	return n.use.URL, n.use.Fragment
}

// Resolved reports whether an external use reference has been attached.
func (n *Node) Resolved() bool {
	return n.use != nil && n.use.resolved
}

type loadResult struct {
	node       *Node
	generation uint64
	doc        *vdoc.Document
	err        error
}

// shellLink ties a shell scene to the use node its root hangs under.
type shellLink struct {
	node  *Node
	shell *Scene
}

// top returns the scene at the root of the shell chain.
func (s *Scene) top() *Scene {
	for s.parent != nil {
		s = s.parent
	}
	return s
}

// requestExternal starts loading the document behind an external use
// node. The goroutine only calls the loader; the result is applied by
// poll on the update goroutine.
func (s *Scene) requestExternal(n *Node) {
	ref := n.use
	loader := s.opts.Loader
	if loader == nil {
		s.logResolution(ref, errNoLoader)
		return
	}
	top := s.top()
	top.pending++
	gen := ref.generation
	docURL := ref.URL
	ctx := top.ctx
	results := top.loads
	go func() {
		doc, err := loader.Load(ctx, docURL)
		select {
		case results <- loadResult{node: n, generation: gen, doc: doc, err: err}:
		case <-ctx.Done():
		}
	}()
}

// PendingLoads returns the number of external loads not yet applied.
func (s *Scene) PendingLoads() int {
	return s.top().pending
}

// poll applies finished loads, then propagates shell dirtiness to the
// use nodes the shells hang under. It returns the number of loads applied.
func (s *Scene) poll() int {
	applied := 0
drain:
	for {
		select {
		case res := <-s.loads:
			s.pending--
			if s.applyLoad(res) {
				applied++
			}
		default:
			break drain
		}
	}
	// newest shells first so nested dirtiness climbs in one pass
	for i := len(s.shells) - 1; i >= 0; i-- {
		link := s.shells[i]
		if !link.shell.dirty {
			continue
		}
		link.shell.dirty = false
		markSubtreeDirty(link.node)
		if link.node.owner != nil {
			link.node.owner.dirty = true
		}
	}
	return applied
}

// applyLoad attaches a loaded fragment under its use node. Results for
// destroyed scenes, disposed nodes or stale generations are dropped.
func (s *Scene) applyLoad(res loadResult) bool {
	n := res.node
	if s.state == StateDestroyed || n.disposed || n.use == nil || n.use.generation != res.generation {
		s.log.Debug("discarding stale external load", slog.Uint64("node", uint64(n.ID)))
		return false
	}
	ref := n.use
	if res.err != nil {
		s.logResolution(ref, res.err)
		return false
	}
	el, ok := res.doc.ByID(ref.Fragment)
	if !ok {
		s.logResolution(ref, vdoc.ErrNotFound)
		return false
	}

	owner := n.owner
	if owner == nil {
		owner = s
	}
	shell := newShellScene(owner, res.doc)
	inherited := shell.paints.imported(owner.paints.inherited(n.paint))
	child := newBuilder(shell, res.doc).build(el, inherited)
	if child == nil {
		s.logResolution(ref, errors.New("fragment did not build"))
		return false
	}
	child.local = identityTransform
	n.AddChild(child)
	ref.resolved = true

	owner.dirty = true
	s.shells = append(s.shells, shellLink{node: n, shell: shell})
	s.log.Info("external reference resolved",
		slog.String("url", ref.URL), slog.String("fragment", ref.Fragment))
	return true
}

func (s *Scene) logResolution(ref *useRef, err error) {
	rerr := &ExternalResolutionError{URL: ref.URL, Fragment: ref.Fragment, Err: err}
	s.log.Warn("external reference unresolved", slog.Any("err", rerr))
}

// resolveURL resolves ref against the URL of the referencing document.
func resolveURL(base, ref string) string {
	if ref == "" || base == "" {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() || strings.HasPrefix(ref, "/") {
		return ref
	}
	b, err := url.Parse(base)
	if err == nil && b.IsAbs() {
		return b.ResolveReference(u).String()
	}
	return path.Join(path.Dir(base), ref)
}
