package domain

// Group a gratitude group, container for one chat thread and its roster
type Group struct {
	ID        string   `bson:"_id,omitempty" json:"id"`
	Name      string   `bson:"name,omitempty" json:"name"`
	OwnerID   string   `bson:"owner_id" json:"owner_id"`
	Members   []string `bson:"members,omitempty" json:"members"`
	CreatedAt int64    `bson:"created_at,omitempty" json:"created_at"`
}

// Member user profile row used to resolve display names
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
