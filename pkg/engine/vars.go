package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/cadenzahq/cadenza/pkg/models"
	"github.com/cadenzahq/cadenza/pkg/protocol"
)

// varsBuilder assembles the template variable map for one run. Tenant-level
// lookups (profile, custom variables) happen once; the per-context part is
// rebuilt after every action that mutates the execution context so downstream
// nodes see fresh values.
type varsBuilder struct {
	ownerID string
	event   *models.TriggerEvent
	profile *protocol.OwnerProfile
	custom  map[string]string
}

func newVarsBuilder(ctx context.Context, ownerID string, event *models.TriggerEvent, directory protocol.TenantDirectory) *varsBuilder {
	builder := &varsBuilder{
		ownerID: ownerID,
		event:   event,
	}

	if directory != nil {
		profile, err := directory.Profile(ctx, ownerID)
		if err == nil {
			builder.profile = profile
		}

		custom, err := directory.CustomVariables(ctx, ownerID)
		if err == nil {
			builder.custom = custom
		}
	}

	return builder
}

// Build returns the variable map for the current context state. Custom tenant
// variables have the lowest precedence.
func (b *varsBuilder) Build(execCtx *ExecutionContext) map[string]string {
	vars := make(map[string]string, len(b.custom)+16)

	for key, value := range b.custom {
		vars[key] = value
	}

	if b.profile != nil {
		vars["business.name"] = b.profile.BusinessName
		vars["owner.email"] = b.profile.Email
		vars["owner.phone"] = b.profile.Phone
	}

	if execCtx.Contact != nil {
		vars["contact.id"] = execCtx.Contact.ID
		vars["contact.name"] = execCtx.Contact.Name
		vars["contact.firstName"] = models.FirstName(execCtx.Contact.Name)
		vars["contact.email"] = execCtx.Contact.Email
		vars["contact.phone"] = execCtx.Contact.Phone
	}

	if execCtx.Message != nil {
		vars["message.from"] = execCtx.Message.From
		vars["message.to"] = execCtx.Message.To
		vars["message.body"] = execCtx.Message.Body
	}

	now := time.Now().UTC()
	vars["now.hour"] = strconv.Itoa(now.Hour())
	vars["now.weekday"] = now.Weekday().String()
	vars["now.iso"] = now.Format(time.RFC3339)
	vars["now.date"] = now.Format("2006-01-02")

	return vars
}
