package sitecontent

// SocialIcon is the navigation category a social link renders under.
type SocialIcon string

const (
	IconInstagram SocialIcon = "instagram"
	IconGitHub    SocialIcon = "github"
	IconLinkedIn  SocialIcon = "linkedin"
	IconYouTube   SocialIcon = "youtube"
	IconMail      SocialIcon = "mail"
	IconGlobe     SocialIcon = "globe"
)

type SiteContent struct {
	Meta      SiteMeta        `json:"meta"`
	Hero      HeroContent     `json:"hero"`
	About     []string        `json:"about"`
	Work      []WorkItem      `json:"work"`
	Education []EducationItem `json:"education"`
	Skills    []string        `json:"skills"`
	Socials   []SocialLink    `json:"socials"`
	Booking   BookingContent  `json:"booking"`
	Projects  []ProjectItem   `json:"projects"`
	Creative  []CreativeItem  `json:"creative"`
	Contact   ContactContent  `json:"contact"`
}

type SiteMeta struct {
	Name        string `json:"name"`
	Initials    string `json:"initials"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	AvatarURL   string `json:"avatarUrl"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	SEOImage    string `json:"seoImage"`
}

type HeroContent struct {
	Headline          string `json:"headline"`
	Subheadline       string `json:"subheadline"`
	Intro             string `json:"intro"`
	PrimaryCTALabel   string `json:"primaryCtaLabel"`
	SecondaryCTALabel string `json:"secondaryCtaLabel"`
}

type WorkItem struct {
	Company     string   `json:"company"`
	Href        string   `json:"href,omitempty"`
	Title       string   `json:"title"`
	Location    string   `json:"location,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end,omitempty"`
	Description string   `json:"description"`
	Logo        string   `json:"logo,omitempty"`
	Badges      []string `json:"badges,omitempty"`
}

type EducationItem struct {
	School string `json:"school"`
	Href   string `json:"href,omitempty"`
	Degree string `json:"degree"`
	Start  string `json:"start"`
	End    string `json:"end,omitempty"`
	Logo   string `json:"logo,omitempty"`
}

type SocialLink struct {
	Name string     `json:"name"`
	URL  string     `json:"url"`
	Icon SocialIcon `json:"icon"`
}

type BookingOption struct {
	Emoji       string `json:"emoji"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type BookingContent struct {
	Title    string          `json:"title"`
	Intro    string          `json:"intro"`
	EmbedURL string          `json:"embedUrl"`
	Options  []BookingOption `json:"options"`
}

type ProjectLink struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

type ProjectItem struct {
	Title        string        `json:"title"`
	Href         string        `json:"href"`
	Dates        string        `json:"dates"`
	Description  string        `json:"description"`
	Technologies []string      `json:"technologies"`
	Image        string        `json:"image"`
	Video        string        `json:"video"`
	Links        []ProjectLink `json:"links"`
}

// CreativeItem is a gallery entry; Type is "video" or "photo".
type CreativeItem struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Caption string `json:"caption"`
	Client  string `json:"client"`
	Year    string `json:"year"`
	Image   string `json:"image"`
	Video   string `json:"video"`
}

type ContactContent struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
