package models

import "time"

// ProviderGoogle identifies the Google social provider.
const ProviderGoogle = "google"

// SocialApp is a registered OAuth client application.
type SocialApp struct {
	ID        string    `db:"id" json:"id"`
	Provider  string    `db:"provider" json:"provider"`
	ClientID  string    `db:"client_id" json:"client_id"`
	Secret    string    `db:"secret" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SocialToken is the OAuth token a user obtained by linking an account.
type SocialToken struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	Provider     string     `db:"provider" json:"provider"`
	AccessToken  string     `db:"access_token" json:"-"`
	RefreshToken string     `db:"refresh_token" json:"-"`
	ExpiresAt    *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// GoogleCredentials is the credential bundle cached per user.
type GoogleCredentials struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	TokenURI     string     `json:"token_uri"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Folder is a provider folder reference.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderStructure is the three folder hierarchy provisioned per owner.
type FolderStructure struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DataFolder      Folder `json:"data_folder"`
	ResponsesFolder Folder `json:"responses_folder"`
}

// Resolved reports whether every folder id is known.
func (s FolderStructure) Resolved() bool {
	return s.ID != "" && s.DataFolder.ID != "" && s.ResponsesFolder.ID != ""
}

// DriveFile is the metadata returned for a created or uploaded file.
type DriveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"web_view_link"`
}
