package linkedin

import "github.com/blacktop/postkit/internal/publish"

const (
	shareContentKey = "com.linkedin.ugc.ShareContent"
	visibilityKey   = "com.linkedin.ugc.MemberNetworkVisibility"
)

// UGCPost is the ugcPosts request body.
type UGCPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]ShareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// ShareContent is the com.linkedin.ugc.ShareContent payload.
type ShareContent struct {
	ShareCommentary    Commentary `json:"shareCommentary"`
	ShareMediaCategory string     `json:"shareMediaCategory"`
	Media              []Media    `json:"media"`
}

type Commentary struct {
	Text string `json:"text"`
}

type Media struct {
	Status      string `json:"status"`
	OriginalURL string `json:"originalUrl"`
}

// NewUGCPost builds the body for an organization post. The media block is
// only populated when the post carries an image.
func NewUGCPost(organizationID string, post publish.Post) UGCPost {
	content := ShareContent{
		ShareCommentary:    Commentary{Text: post.Caption},
		ShareMediaCategory: "NONE",
		Media:              []Media{},
	}
	if post.ImageURL != "" {
		content.ShareMediaCategory = "IMAGE"
		content.Media = []Media{{Status: "READY", OriginalURL: post.ImageURL}}
	}

	return UGCPost{
		Author:          "urn:li:organization:" + organizationID,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]ShareContent{shareContentKey: content},
		Visibility:      map[string]string{visibilityKey: "PUBLIC"},
	}
}
