package models

// All returns every model that is migrated at boot.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Challenge{},
		&Participation{},
		&Community{},
		&CommunityMember{},
		&FeedPost{},
		&DailyLog{},
		&LogItem{},
		&PendingFeedPost{},
	}
}
