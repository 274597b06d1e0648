package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links derives RFC 8288 Link headers from the OpenAPI document. Create it
// before the API so its Transformer can go into the Huma config, then call
// Build once every route is registered.
type Links struct {
	mu     sync.RWMutex
	byPath map[string][]string
	skip   map[string]bool
}

// NewLinks creates an empty link table. Operations tagged with any of
// skipTags (Datastar SSE endpoints) get no links.
func NewLinks(skipTags ...string) *Links {
	skip := make(map[string]bool, len(skipTags))
	for _, t := range skipTags {
		skip[t] = true
	}
	return &Links{byPath: map[string][]string{}, skip: skip}
}

type pathInfo struct {
	path string
	tags []string
}

// Build walks the OpenAPI paths and generates links between collections,
// their items and the /health entry point.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	byPath := map[string][]string{}
	add := func(from, to, rel string) {
		val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
		for _, existing := range byPath[from] {
			if existing == val {
				return
			}
		}
		byPath[from] = append(byPath[from], val)
	}

	var collections, items []pathInfo
	for p, pi := range oapi.Paths {
		tags := primaryTags(pi)
		if l.skipped(tags) {
			continue
		}
		info := pathInfo{path: p, tags: tags}
		if strings.Contains(p, "{") {
			items = append(items, info)
		} else {
			collections = append(collections, info)
		}
	}
	// map iteration order is random; keep headers stable
	sort.Slice(collections, func(i, j int) bool { return collections[i].path < collections[j].path })
	sort.Slice(items, func(i, j int) bool { return items[i].path < items[j].path })

	for _, item := range items {
		parent := path.Dir(item.path)
		if _, ok := oapi.Paths[parent]; ok {
			add(item.path, parent, "collection")
			add(item.path, parent, "up")
		}
	}

	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item.path) == coll.path {
				add(coll.path, item.path, "item")
			}
		}
		if coll.path != "/health" {
			add(coll.path, "/health", "up")
		}
		if pi := oapi.Paths[coll.path]; pi.Post != nil {
			add(coll.path, coll.path, "create-form")
		}
	}

	for _, item := range items {
		if pi := oapi.Paths[item.path]; pi.Put != nil || pi.Patch != nil {
			add(item.path, item.path, "edit")
		}
	}

	// collections sharing a tag point at each other
	for i, a := range collections {
		for j, b := range collections {
			if i != j && sharedTag(a.tags, b.tags) {
				add(a.path, b.path, lastSegment(b.path))
			}
		}
	}

	for _, coll := range collections {
		if coll.path != "/health" {
			add("/health", coll.path, lastSegment(coll.path))
		}
	}
	add("/health", "/openapi.json", "describedby")
	add("/health", "/openapi.json", "service-desc")
	add("/health", "/docs", "service-doc")
	add("/health", "/map", "alternate")

	for p, pi := range oapi.Paths {
		headers, ok := byPath[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}

	l.mu.Lock()
	l.byPath = byPath
	l.mu.Unlock()
}

// For returns the generated Link header values for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.byPath[opPath]
}

// Transformer returns a Huma Transformer that injects the generated Link
// headers, a self link for item endpoints, pagination links and actions.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil || l.skipped(op.Tags) {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

func (l *Links) skipped(tags []string) bool {
	for _, t := range tags {
		if l.skip[t] {
			return true
		}
	}
	return false
}

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func sharedTag(a, b []string) bool {
	for _, at := range a {
		for _, bt := range b {
			if at == bt {
				return true
			}
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success
// response so the document itself carries the relationships.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = relPart[len(`rel="`):]
		if i := strings.IndexByte(rel, '"'); i >= 0 {
			rel = rel[:i]
		}
	}
	return rel, href
}
