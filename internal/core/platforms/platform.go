package platforms

// Platform identifies one external social platform
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformThreads   Platform = "threads"
	PlatformPinterest Platform = "pinterest"
	PlatformTwitter   Platform = "twitter"
	PlatformWeChat    Platform = "wechat"
	PlatformBilibili  Platform = "bilibili"
	PlatformKwai      Platform = "kwai"
)

// PaginationType declares which cursor variant a platform's comment APIs
// understand. An adapter supports exactly one.
type PaginationType string

const (
	// PaginationKeyset is opaque before/after token paging (Graph API style)
	PaginationKeyset PaginationType = "keyset"

	// PaginationOffset is numeric page/pageSize paging
	PaginationOffset PaginationType = "offset"
)

// TargetType distinguishes what kind of object a comment fetch is rooted at
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetVideo   TargetType = "video"
	TargetArticle TargetType = "article"
)
