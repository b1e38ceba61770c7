package feed

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/config"
	"github.com/nixlim/mixwatch/internal/scope"
)

// UserSort orders the user directory by id.
type UserSort int

const (
	SortNewest UserSort = iota // highest id first
	SortOldest
)

func (s UserSort) String() string {
	if s == SortOldest {
		return "oldest"
	}
	return "newest"
}

// UserQuery narrows and orders the user directory.
type UserQuery struct {
	Search string      // case-insensitive match on name, email or login
	Role   *api.Rights // nil matches every role
	Sort   UserSort
}

// UsersView is one page of the user directory.
type UsersView struct {
	Users      []api.User
	Query      UserQuery
	Page       int
	TotalPages int
	Matched    int
	Loaded     bool
	Err        error
}

// Users is the admin-only directory of user accounts. The list is loaded
// once per Load; search, role filter, sort and paging run locally.
type Users struct {
	source   UserSource
	sessions SessionSource
	pageSize int

	mu     sync.Mutex
	all    []api.User
	query  UserQuery
	page   int
	loaded bool
	err    error
	seq    uint64
}

// NewUsers creates a Users controller positioned on page 1.
func NewUsers(cfg config.Config, source UserSource, sessions SessionSource) *Users {
	size := cfg.Polling.UsersPageSize
	if size < 1 {
		size = 20
	}
	return &Users{source: source, sessions: sessions, pageSize: size, page: 1}
}

// Allowed reports whether the signed-in user may see the directory.
func (u *Users) Allowed() bool {
	s := u.sessions.Current()
	return s != nil && scope.IsAdmin(s.User)
}

// Load fetches every user. Only admins may load the directory.
func (u *Users) Load(ctx context.Context) error {
	s := u.sessions.Current()
	if s == nil {
		return ErrNoSession
	}
	if !scope.IsAdmin(s.User) {
		return fmt.Errorf("list users: %w", ErrForbidden)
	}

	u.mu.Lock()
	u.seq++
	seq := u.seq
	u.mu.Unlock()

	users, err := u.source.GetUsers(ctx)

	u.mu.Lock()
	defer u.mu.Unlock()
	if seq != u.seq {
		return nil
	}
	u.loaded = true
	if err != nil {
		u.err = err
		return fmt.Errorf("loading users: %w", err)
	}
	u.all = users
	u.err = nil
	u.clampPage()
	return nil
}

// SetSearch replaces the search text and rewinds to page 1.
func (u *Users) SetSearch(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.query.Search = text
	u.page = 1
}

// SetRole filters by permission level; nil clears the filter. Rewinds to
// page 1.
func (u *Users) SetRole(r *api.Rights) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.query.Role = r
	u.page = 1
}

// CycleRole steps the role filter through all, admin, specialist, operator.
func (u *Users) CycleRole() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.query.Role = nextRole(u.query.Role)
	u.page = 1
}

var roleCycle = []api.Rights{scope.RightsAdmin, scope.RightsSpecialist, scope.RightsOperator}

func nextRole(r *api.Rights) *api.Rights {
	if r == nil {
		next := roleCycle[0]
		return &next
	}
	for i, c := range roleCycle {
		if c == *r && i+1 < len(roleCycle) {
			next := roleCycle[i+1]
			return &next
		}
	}
	return nil
}

// SetSort changes the order. The page is kept.
func (u *Users) SetSort(s UserSort) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.query.Sort = s
}

// ToggleSort flips between newest and oldest first.
func (u *Users) ToggleSort() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.query.Sort == SortNewest {
		u.query.Sort = SortOldest
	} else {
		u.query.Sort = SortNewest
	}
}

// NextPage advances one page. It reports whether the page changed.
func (u *Users) NextPage() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.page >= u.totalPages(len(QueryUsers(u.all, u.query))) {
		return false
	}
	u.page++
	return true
}

// PrevPage goes back one page. It reports whether the page changed.
func (u *Users) PrevPage() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.page <= 1 {
		return false
	}
	u.page--
	return true
}

func (u *Users) totalPages(n int) int {
	pages := (n + u.pageSize - 1) / u.pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (u *Users) clampPage() {
	if total := u.totalPages(len(QueryUsers(u.all, u.query))); u.page > total {
		u.page = total
	}
	if u.page < 1 {
		u.page = 1
	}
}

// View returns the current page of the filtered, sorted directory.
func (u *Users) View() UsersView {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.clampPage()

	matched := QueryUsers(u.all, u.query)
	start := (u.page - 1) * u.pageSize
	end := min(start+u.pageSize, len(matched))
	var pageUsers []api.User
	if start < end {
		pageUsers = append([]api.User(nil), matched[start:end]...)
	}
	return UsersView{
		Users:      pageUsers,
		Query:      u.query,
		Page:       u.page,
		TotalPages: u.totalPages(len(matched)),
		Matched:    len(matched),
		Loaded:     u.loaded,
		Err:        u.err,
	}
}

// QueryUsers applies search, role filter and sort to users.
func QueryUsers(users []api.User, q UserQuery) []api.User {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]api.User, 0, len(users))
	for _, usr := range users {
		if q.Role != nil && usr.Rights != *q.Role {
			continue
		}
		if needle != "" && !matchesUser(usr, needle) {
			continue
		}
		out = append(out, usr)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Sort == SortOldest {
			return idLess(out[i].ID, out[j].ID)
		}
		return idLess(out[j].ID, out[i].ID)
	})
	return out
}

func matchesUser(u api.User, needle string) bool {
	for _, field := range []string{u.Name, u.Email, u.Login} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// idLess compares numeric ids by value and anything else as text. Numeric
// ids sort before non-numeric ones.
func idLess(a, b api.ID) bool {
	na, errA := strconv.ParseInt(a.String(), 10, 64)
	nb, errB := strconv.ParseInt(b.String(), 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
