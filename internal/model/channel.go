package model

import (
	"fmt"
	"strings"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
)

// Channel identifies one outreach or analytics source.
type Channel string

const (
	ChannelLinkedIn   Channel = "linkedin"
	ChannelInstagram  Channel = "instagram"
	ChannelFacebook   Channel = "facebook"
	ChannelVideo      Channel = "video"
	ChannelNewsletter Channel = "newsletter"
)

// AgentChannels are the channels whose reports share the AgentLeadsReport schema.
var AgentChannels = []Channel{ChannelLinkedIn, ChannelInstagram, ChannelFacebook, ChannelVideo}

var displayNames = map[Channel]string{
	ChannelLinkedIn:   "LinkedIn",
	ChannelInstagram:  "Instagram",
	ChannelFacebook:   "Facebook",
	ChannelVideo:      "Video",
	ChannelNewsletter: "Newsletter",
}

// ParseChannel normalizes a channel tag. Unknown tags are validation errors.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[c]; !ok {
		return "", fmt.Errorf("%w: unknown channel %q", apperrors.ErrValidation, s)
	}
	return c, nil
}

// IsAgent reports whether the channel stores AgentLeadsReport rows.
func (c Channel) IsAgent() bool {
	for _, a := range AgentChannels {
		if a == c {
			return true
		}
	}
	return false
}

// DisplayName returns the human readable channel name used in activity messages.
func (c Channel) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

func (c Channel) String() string {
	return string(c)
}
