package render

import (
	"fmt"
	"html"
	"math/rand"
	"time"

	"github.com/CMIS-TAMU/cmis-events-sub000/internal/templates/domain"
)

// Input is the shared rendering contract for every variation of every category.
type Input struct {
	RecipientName string

	// Listing payload, populated from the referenced domain object.
	ListingTitle       string
	ListingDescription string
	ListingLocation    string
	ListingStartsAt    time.Time

	BaseURL          string
	UnsubscribeToken string
}

// Content is a rendered subject/body pair. Body is HTML.
type Content struct {
	Subject string
	HTML    string
}

// Fn is a pure content renderer.
type Fn func(Input) Content

// Selector picks one of a category's interchangeable renderers at random.
// Selection is per-invocation, not per-recipient: the goal is visual diversity
// across a bulk send, not personalization.
type Selector struct {
	intn func(n int) int
}

// NewSelector returns a Selector backed by the shared math/rand source.
func NewSelector() *Selector { return &Selector{intn: rand.Intn} }

// NewSelectorWithIntn returns a Selector with a pinned random source, for tests.
func NewSelectorWithIntn(intn func(n int) int) *Selector { return &Selector{intn: intn} }

// Select returns a renderer for the category and the index that was chosen.
// Categories without a registered variation set fall back to the general set.
func (s *Selector) Select(category domain.Category) (Fn, int) {
	set, ok := variations[category]
	if !ok || len(set) == 0 {
		set = variations[domain.CategoryGeneral]
	}
	i := s.intn(len(set))
	return set[i], i
}

// variations maps each category to its fixed, non-empty renderer set.
var variations = map[domain.Category][]Fn{
	domain.CategoryEventAnnouncement:        {eventAnnouncementA, eventAnnouncementB, eventAnnouncementC},
	domain.CategoryMentorshipInvite:         {mentorshipInviteA, mentorshipInviteB},
	domain.CategoryRegistrationConfirmation: {registrationConfirmationA, registrationConfirmationB},
	domain.CategoryGeneral:                  {generalA},
}

func footer(in Input) string {
	return fmt.Sprintf(
		`<p style="font-size:12px;color:#888">You are receiving this because you are subscribed to campus notifications. <a href="%s/v1/unsubscribe?token=%s">Unsubscribe</a></p>`,
		in.BaseURL, in.UnsubscribeToken)
}

func greeting(in Input) string {
	name := in.RecipientName
	if name == "" {
		name = "there"
	}
	return html.EscapeString(name)
}

func when(in Input) string {
	if in.ListingStartsAt.IsZero() {
		return "soon"
	}
	return in.ListingStartsAt.Format("Monday, January 2 at 3:04 PM")
}

func eventAnnouncementA(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("New on campus: %s", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<h2>%s</h2><p>Hi %s,</p><p>A new event just went up: <strong>%s</strong>, happening %s at %s.</p><p>%s</p><p><a href="%s/events">See details and register</a></p>%s`,
			html.EscapeString(in.ListingTitle), greeting(in), html.EscapeString(in.ListingTitle), when(in),
			html.EscapeString(in.ListingLocation), html.EscapeString(in.ListingDescription), in.BaseURL, footer(in)),
	}
}

func eventAnnouncementB(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("Don't miss: %s", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p><strong>%s</strong> was just announced — %s, %s.</p><blockquote>%s</blockquote><p><a href="%s/events">View the event page</a></p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), when(in), html.EscapeString(in.ListingLocation),
			html.EscapeString(in.ListingDescription), in.BaseURL, footer(in)),
	}
}

func eventAnnouncementC(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("%s — now open for registration", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Registration is open for <strong>%s</strong>.</p><ul><li>When: %s</li><li>Where: %s</li></ul><p>%s</p><p><a href="%s/events">Register now</a></p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), when(in), html.EscapeString(in.ListingLocation),
			html.EscapeString(in.ListingDescription), in.BaseURL, footer(in)),
	}
}

func mentorshipInviteA(in Input) Content {
	return Content{
		Subject: "A mentorship opportunity is waiting for you",
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>You have been matched with a mentorship opportunity: <strong>%s</strong>.</p><p>%s</p><p><a href="%s/mentorship">Review and respond</a></p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), html.EscapeString(in.ListingDescription), in.BaseURL, footer(in)),
	}
}

func mentorshipInviteB(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("Mentorship invite: %s", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>We'd like to invite you to take part in <strong>%s</strong>.</p><blockquote>%s</blockquote><p><a href="%s/mentorship">See your invitation</a></p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), html.EscapeString(in.ListingDescription), in.BaseURL, footer(in)),
	}
}

func registrationConfirmationA(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("You're registered for %s", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>Your registration for <strong>%s</strong> is confirmed — see you %s at %s.</p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), when(in), html.EscapeString(in.ListingLocation), footer(in)),
	}
}

func registrationConfirmationB(in Input) Content {
	return Content{
		Subject: fmt.Sprintf("Registration confirmed: %s", in.ListingTitle),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>This confirms your spot at <strong>%s</strong> (%s, %s).</p>%s`,
			greeting(in), html.EscapeString(in.ListingTitle), when(in), html.EscapeString(in.ListingLocation), footer(in)),
	}
}

func generalA(in Input) Content {
	return Content{
		Subject: in.ListingTitle,
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>%s</p>%s`,
			greeting(in), html.EscapeString(in.ListingDescription), footer(in)),
	}
}
