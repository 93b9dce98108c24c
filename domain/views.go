package domain

// Read models returned by the service surface. They are plain copies
// built under lock and safe to hand to any transport.

type ChannelInfo struct {
	Name        string
	HasPassword bool
}

type ChannelMember struct {
	Channel   string
	Username  string
	IsAccount bool
	IsIgnored bool
	IsAdmin   bool
	IsBanned  bool
}

type ChannelDetail struct {
	Name        string
	HasPassword bool
	Topic       string
	Members     []ChannelMember
}
