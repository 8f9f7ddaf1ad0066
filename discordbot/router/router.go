package router

import (
	"encoding/csv"
	"errors"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	// ErrNotMatched is returned when unknown command is issued
	ErrNotMatched = errors.New("command not matched")
)

// Router implements routing dispatch
type Router struct {
	Routes             map[string]*Route
	Groups             []*Group
	GroupSorter        GroupSorterFunc
	DefaultRouteSorter RouteSorterFunc
	Middleware         []MiddlewareFunc
}

// Dispatch tries to find matching route and execute it. Prefixes map group names to
// group-specific prefixes, empty group name holds the default prefix.
func (router *Router) Dispatch(
	session Session,
	prefixes map[string]string,
	userID string,
	msg *discordgo.Message,
) (err error) {
	if msg.Author == nil || msg.Author.ID == userID || msg.Author.Bot {
		return nil
	}

	var excludes []string

	for g, p := range prefixes {
		if p != "" && g != "" {
			excludes = append(excludes, g)
		}
	}

	matched, err := router.dispatch(session, excludes, "", prefixes[""], msg)
	if err != nil || matched {
		return
	}

	for _, g := range excludes {
		matched, err = router.dispatch(session, nil, g, prefixes[g], msg)
		if err != nil || matched {
			return
		}
	}

	return ErrNotMatched
}

func parseArgs(raw string) Args {
	line := raw
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = ' '
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	args, err := reader.Read()
	if err != nil {
		return strings.Fields(line)
	}

	return args
}

func (router *Router) match(excludegroups []string, only, raw string) (best *Route) {
	score := 0

	for _, r := range router.Routes {
		if checkExclude(excludegroups, only, r) {
			continue
		}

		s := r.Matcher(raw)
		if s > score || (s == score && s > 0 && best != nil && r.Name < best.Name) {
			best, score = r, s
		}
	}

	return
}

func (router *Router) bake(r *Route) HandlerFunc {
	r.m.Lock()
	defer r.m.Unlock()

	if r.Baked != nil {
		return r.Baked
	}

	var middlewares []MiddlewareFunc

	middlewares = append(middlewares, router.Middleware...)

	for _, g := range r.Groups {
		middlewares = append(middlewares, g.Middleware...)
	}

	middlewares = append(middlewares, r.Middleware...)

	baked := r.Handler
	for i := len(middlewares) - 1; i >= 0; i-- {
		baked = middlewares[i](baked)
	}

	r.Baked = baked

	return baked
}

func (router *Router) dispatch(
	session Session,
	excludegroups []string, only, prefix string,
	msg *discordgo.Message,
) (matched bool, err error) {
	if prefix == "" || !strings.HasPrefix(msg.Content, prefix) {
		return false, nil
	}

	raw := strings.TrimPrefix(msg.Content, prefix)

	r := router.match(excludegroups, only, raw)
	if r == nil {
		return false, nil
	}

	err = router.bake(r)(&Context{
		Session: session,
		Message: msg,
		Route:   r,
		Args:    parseArgs(raw),
		Raw:     raw,
	})

	return true, err
}

func checkExclude(excludegroups []string, only string, r *Route) bool {
	if only != "" {
		var matched bool

		for _, g := range r.Groups {
			if g.Name == only {
				matched = true
			}
		}

		if !matched {
			return true
		}
	}

	for _, g := range r.Groups {
		for _, exg := range excludegroups {
			if g.Name == exg {
				return true
			}
		}
	}

	return false
}

// Group returns group with given name
func (router *Router) Group(name string) (cand *Group) {
	cand = &Group{
		Name:        name,
		RouteSorter: router.DefaultRouteSorter,
		Router:      router,
		Data:        make(map[string]interface{}),
	}

	i := sort.Search(len(router.Groups), func(i int) bool {
		return router.GroupSorter(router.Groups[i], cand)
	})

	if i == len(router.Groups) || router.Groups[i].Name != name {
		router.Groups = append(router.Groups[:i], append([]*Group{cand}, router.Groups[i:]...)...)
	} else {
		cand = router.Groups[i]
	}

	return
}

// Route return route with given parameters
func (router *Router) Route(matcher MatcherFunc, name, desc string, handler HandlerFunc) (route *Route) {
	var ok bool
	if route, ok = router.Routes[name]; !ok {
		route = &Route{
			Name:        name,
			Description: desc,
			Matcher:     matcher,
			Handler:     handler,
			Router:      router,
			Data:        make(map[string]interface{}),
			Replies:     make(map[string]*Reply),
		}
		router.Routes[name] = route
	}

	return
}

func nameMatcher(name string) MatcherFunc {
	words := strings.Fields(name)

	return func(raw string) int {
		parts := strings.Fields(raw)
		if len(parts) < len(words) {
			return 0
		}

		for i, w := range words {
			if !strings.EqualFold(parts[i], w) {
				return 0
			}
		}

		return len(words)
	}
}

// On creates new route in given group using name matcher
func (router *Router) On(group, name, desc string, handler HandlerFunc) (route *Route) {
	return router.Group(group).On(name, desc, handler)
}

// AppendMiddleware append middleware to end of the chain
func (router *Router) AppendMiddleware(middleware MiddlewareFunc) {
	router.Middleware = append(router.Middleware, middleware)
}

// PrependMiddleware append middleware to beginning of the chain
func (router *Router) PrependMiddleware(middleware MiddlewareFunc) {
	router.Middleware = append([]MiddlewareFunc{middleware}, router.Middleware...)
}
