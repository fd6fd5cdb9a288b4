package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trade_console/internal/query"
	"trade_console/internal/session"
	"trade_console/internal/validation"
	"trade_console/internal/xts"

	"go.uber.org/zap"
)

const PartnerDataType = "XTSCounterparty"

var PartnerSpec = query.Spec{
	DataType: PartnerDataType,
	Search: []query.SearchField{
		{Key: "description", Property: "description"},
		{Key: "phone", Property: "phone"},
	},
	Filters: []query.Filter{
		{Key: "role", Kind: query.Flag, Values: map[string]string{
			"customer": "customer",
			"supplier": "supplier",
			"other":    "otherRelationship",
		}},
		{Key: "status", Kind: query.Status},
	},
}

// PartnerRoles replaces the dotted "types.isCustomer" paths of the draft with
// typed fields.
type PartnerRoles struct {
	Customer bool
	Supplier bool
	Other    bool
}

type Partner struct {
	ID              string
	Description     string
	DescriptionFull string
	Phone           string
	Email           string
	Address         string
	Comment         string
	Roles           PartnerRoles
	Invalid         bool
}

func (p Partner) Ref() xts.ObjectID {
	return xts.NewObjectID(PartnerDataType, p.ID, p.Description)
}

type PartnerDraft struct {
	Description     string
	DescriptionFull string
	Phone           string
	Email           string
	Address         string
	Comment         string
	Roles           PartnerRoles
	Invalid         bool
}

type counterpartyObject struct {
	objectHeader
	Description       string       `json:"description"`
	DescriptionFull   string       `json:"descriptionFull"`
	Phone             string       `json:"phone"`
	Email             string       `json:"email"`
	Address           string       `json:"address"`
	Comment           string       `json:"comment"`
	Customer          bool         `json:"customer"`
	Supplier          bool         `json:"supplier"`
	OtherRelationship bool         `json:"otherRelationship"`
	Invalid           bool         `json:"invalid"`
	Responsible       xts.ObjectID `json:"responsible"`
}

func decodePartner(raw json.RawMessage) (Partner, error) {
	obj, err := decodeObject[counterpartyObject](raw, PartnerDataType)
	if err != nil {
		return Partner{}, err
	}
	description := obj.Description
	if description == "" {
		description = obj.ObjectID.Presentation
	}
	return Partner{
		ID:              obj.ObjectID.ID,
		Description:     description,
		DescriptionFull: obj.DescriptionFull,
		Phone:           obj.Phone,
		Email:           obj.Email,
		Address:         obj.Address,
		Comment:         obj.Comment,
		Roles: PartnerRoles{
			Customer: obj.Customer,
			Supplier: obj.Supplier,
			Other:    obj.OtherRelationship,
		},
		Invalid: obj.Invalid,
	}, nil
}

func partnerDraft(p Partner) PartnerDraft {
	return PartnerDraft{
		Description:     p.Description,
		DescriptionFull: p.DescriptionFull,
		Phone:           p.Phone,
		Email:           p.Email,
		Address:         p.Address,
		Comment:         p.Comment,
		Roles:           p.Roles,
		Invalid:         p.Invalid,
	}
}

func validatePartner(d PartnerDraft, _ time.Time) error {
	v := validation.Violations{}
	validation.Required("description", d.Description, v)
	validation.Phone("phone", d.Phone, v)
	validation.Email("email", d.Email, v)
	return v.Err()
}

func encodePartner(id string, d PartnerDraft, s session.Session) any {
	full := strings.TrimSpace(d.DescriptionFull)
	if full == "" {
		full = strings.TrimSpace(d.Description)
	}
	return counterpartyObject{
		objectHeader:      newHeader(PartnerDataType, id, d.Description),
		Description:       strings.TrimSpace(d.Description),
		DescriptionFull:   full,
		Phone:             strings.TrimSpace(d.Phone),
		Email:             strings.TrimSpace(d.Email),
		Address:           d.Address,
		Comment:           d.Comment,
		Customer:          d.Roles.Customer,
		Supplier:          d.Roles.Supplier,
		OtherRelationship: d.Roles.Other,
		Invalid:           d.Invalid,
		Responsible:       s.DefaultValues.EmployeeResponsible,
	}
}

var PartnerEntity = Entity[Partner, PartnerDraft]{
	DataType: PartnerDataType,
	Spec:     PartnerSpec,
	Decode:   decodePartner,
	ID:       func(p Partner) string { return p.ID },
	Draft:    partnerDraft,
	Validate: validatePartner,
	Encode:   encodePartner,
}

type Partners struct {
	*Service[Partner, PartnerDraft]
}

func NewPartners(api ObjectAPI, sessions session.Provider, logger *zap.Logger) *Partners {
	return &Partners{Service: NewService(api, sessions, PartnerEntity, logger)}
}

// FindByName returns the first partner whose description equals name,
// ignoring case and surrounding spaces.
func (p *Partners) FindByName(ctx context.Context, name string) (*Partner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	raw, err := p.api.GetObjectList(ctx, xts.ListRequest{
		DataType:   PartnerDataType,
		Conditions: []xts.Condition{xts.NewCondition("description", name, xts.OpEqual)},
		Page:       1,
		PageSize:   20,
	})
	if err != nil {
		return nil, fmt.Errorf("find partner %q: %w", name, err)
	}
	partners, err := p.decodeAll(raw)
	if err != nil {
		return nil, err
	}
	for _, partner := range partners {
		if strings.EqualFold(strings.TrimSpace(partner.Description), name) {
			found := partner
			return &found, nil
		}
	}
	return nil, nil
}

// CreateSupplier registers a new supplier with the contact line kept as comment.
func (p *Partners) CreateSupplier(ctx context.Context, name, contactInfo string) (Partner, error) {
	return p.Create(ctx, PartnerDraft{
		Description: strings.TrimSpace(name),
		Comment:     strings.TrimSpace(contactInfo),
		Roles:       PartnerRoles{Supplier: true},
	})
}
