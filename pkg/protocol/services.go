package protocol

import "context"

// CampaignService enrolls contacts into nurture campaigns. An empty campaignID
// means the tenant's active campaign.
type CampaignService interface {
	Enroll(ctx context.Context, ownerID, contactID, campaignID string) error
}

// OutboundCallService queues AI outbound calls for contacts.
type OutboundCallService interface {
	EnqueueCall(ctx context.Context, ownerID, contactID, campaignID string) error
}
