package domain

// Channel is a named room. Channels exist for the whole process lifetime;
// there is no runtime creation or deletion. Member, admin and ban sets are
// only touched under the channel's striped lock. Admin and ban status are
// plain username sets, independent of current membership.
//
// An empty password means the channel is public.
type Channel struct {
	Name     string
	Password string
	Topic    string

	members map[string]*User
	admins  map[string]struct{}
	banned  map[string]struct{}
}

func NewChannel(name, password, topic string) *Channel {
	return &Channel{
		Name:     name,
		Password: password,
		Topic:    topic,
		members:  make(map[string]*User),
		admins:   make(map[string]struct{}),
		banned:   make(map[string]struct{}),
	}
}

func (c *Channel) HasPassword() bool {
	return c.Password != ""
}

// AddMember reports whether the member set actually changed.
func (c *Channel) AddMember(u *User) bool {
	if _, ok := c.members[u.Username]; ok {
		return false
	}
	c.members[u.Username] = u
	return true
}

func (c *Channel) RemoveMember(username string) bool {
	if _, ok := c.members[username]; !ok {
		return false
	}
	delete(c.members, username)
	return true
}

// Member looks a member up by username; keyed lookup, no equality tricks.
func (c *Channel) Member(username string) (*User, bool) {
	u, ok := c.members[username]
	return u, ok
}

func (c *Channel) IsMember(username string) bool {
	_, ok := c.members[username]
	return ok
}

// Members snapshots the current member set for iteration during fanout.
func (c *Channel) Members() []*User {
	out := make([]*User, 0, len(c.members))
	for _, u := range c.members {
		out = append(out, u)
	}
	return out
}

func (c *Channel) MemberCount() int {
	return len(c.members)
}

// SetAdmin grants or revokes admin status and reports whether the set
// actually changed. The username need not be a current member.
func (c *Channel) SetAdmin(username string, state bool) bool {
	return setFlag(c.admins, username, state)
}

func (c *Channel) IsAdmin(username string) bool {
	_, ok := c.admins[username]
	return ok
}

// SetBanned adds or removes a ban and reports whether the set changed.
func (c *Channel) SetBanned(username string, state bool) bool {
	return setFlag(c.banned, username, state)
}

func (c *Channel) IsBanned(username string) bool {
	_, ok := c.banned[username]
	return ok
}

func setFlag(set map[string]struct{}, username string, state bool) bool {
	_, present := set[username]
	if state == present {
		return false
	}
	if state {
		set[username] = struct{}{}
	} else {
		delete(set, username)
	}
	return true
}
