package model

import (
	"time"
)

// Page is a platform page connected to a user account. PageID is the
// platform-assigned identifier; it is only unique per user, not globally.
type Page struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PageID      string    `json:"page_id"`
	PageName    string    `json:"page_name"`
	AccessToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConnectPageRequest is the request to connect a platform page.
type ConnectPageRequest struct {
	PageID      string `json:"pageId"`
	PageName    string `json:"pageName"`
	AccessToken string `json:"accessToken"`
}

// ConnectPageResponse is the response after connecting a page.
type ConnectPageResponse struct {
	Message string `json:"message"`
	Page    *Page  `json:"page"`
}
