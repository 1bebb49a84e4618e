package catalog

import "github.com/platinummonkey/civicbase/pkg/crud"

// Collection names. They double as table names and route prefixes.
const (
	Regions        = "regions"
	Departments    = "departments"
	Municipalities = "municipalities"
	Neighborhoods  = "neighborhoods"
	Activities     = "activities"
	Enterprises    = "enterprises"
	Beneficiaries  = "beneficiaries"
	Resources      = "resources"
	Profiles       = "profiles"
	Users          = "users"
	Logs           = "logs"
)

// User account statuses.
const (
	StatusActive   = "ACTIVE"
	StatusDisabled = "DISABLED"
	StatusBlocked  = "BLOCKED"
)

const (
	nameRules        = "required,min=2,max=120"
	descriptionRules = "omitempty,max=1000"
	phoneRules       = "omitempty,max=30"
	addressRules     = "omitempty,max=255"
)

// DefaultDescriptors returns the descriptors of every collection, parents
// before children.
func DefaultDescriptors() []*crud.Descriptor {
	return []*crud.Descriptor{
		regionDescriptor(),
		departmentDescriptor(),
		municipalityDescriptor(),
		neighborhoodDescriptor(),
		activityDescriptor(),
		enterpriseDescriptor(),
		beneficiaryDescriptor(),
		resourceDescriptor(),
		profileDescriptor(),
		userDescriptor(),
		logDescriptor(),
	}
}

func nameField() crud.Field {
	return crud.Field{Name: "name", Kind: crud.String, Rules: nameRules, Search: true}
}

func descriptionField() crud.Field {
	return crud.Field{Name: "description", Kind: crud.String, Rules: descriptionRules, Search: true}
}

func ref(name, target, missing string, required bool, fields ...string) crud.Reference {
	if len(fields) == 0 {
		fields = []string{"name"}
	}
	return crud.Reference{
		Name:     name,
		Target:   target,
		Fields:   fields,
		Required: required,
		Missing:  missing,
	}
}

func regionDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Regions,
		Entity:     "region",
		Fields:     []crud.Field{nameField(), descriptionField()},
		Unique:     []string{"name"},
	}
}

func departmentDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Departments,
		Entity:     "department",
		Fields:     []crud.Field{nameField(), descriptionField()},
		References: []crud.Reference{
			ref("region", Regions, "Region does not exist", true),
		},
		Unique: []string{"name"},
	}
}

func municipalityDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Municipalities,
		Entity:     "municipality",
		Fields:     []crud.Field{nameField(), descriptionField()},
		References: []crud.Reference{
			ref("department", Departments, "Department does not exist", true),
		},
		Unique: []string{"name"},
	}
}

func neighborhoodDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Neighborhoods,
		Entity:     "neighborhood",
		Fields:     []crud.Field{nameField(), descriptionField()},
		References: []crud.Reference{
			ref("municipality", Municipalities, "Municipality does not exist", true),
		},
		Unique: []string{"name"},
	}
}

func activityDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Activities,
		Entity:     "activity",
		Fields:     []crud.Field{nameField(), descriptionField()},
		Unique:     []string{"name"},
	}
}

func enterpriseDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Enterprises,
		Entity:     "enterprise",
		Fields: []crud.Field{
			nameField(),
			descriptionField(),
			{Name: "email", Kind: crud.String, Rules: "omitempty,email", Search: true},
			{Name: "phone", Kind: crud.String, Rules: phoneRules, Search: true},
			{Name: "address", Kind: crud.String, Rules: addressRules},
		},
		References: []crud.Reference{
			ref("region", Regions, "Region does not exist", false),
		},
		Unique: []string{"name"},
	}
}

func beneficiaryDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Beneficiaries,
		Entity:     "beneficiary",
		Fields: []crud.Field{
			nameField(),
			{Name: "gender", Kind: crud.String, Rules: "omitempty,oneof=MALE FEMALE"},
			{Name: "birthDate", Kind: crud.Time},
			{Name: "phone", Kind: crud.String, Rules: phoneRules, Search: true},
			{Name: "address", Kind: crud.String, Rules: addressRules},
		},
		References: []crud.Reference{
			ref("neighborhood", Neighborhoods, "Neighborhood does not exist", false),
			ref("activity", Activities, "Activity does not exist", false),
		},
		Unique: []string{"name"},
	}
}

func resourceDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Resources,
		Entity:     "resource",
		Fields: []crud.Field{
			nameField(),
			descriptionField(),
			{Name: "quantity", Kind: crud.Float, Rules: "gte=0"},
			{Name: "unit", Kind: crud.String, Rules: "omitempty,max=30"},
		},
		References: []crud.Reference{
			ref("enterprise", Enterprises, "Enterprise does not exist", false),
			ref("beneficiary", Beneficiaries, "Beneficiary does not exist", false),
		},
		Unique: []string{"name"},
	}
}

// Profiles carry their permission tags in a join table managed by the
// profiles package, so the descriptor only lists the scalar columns.
func profileDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Profiles,
		Entity:     "profile",
		Fields:     []crud.Field{nameField(), descriptionField()},
		Unique:     []string{"name"},
	}
}

func userDescriptor() *crud.Descriptor {
	return &crud.Descriptor{
		Collection: Users,
		Entity:     "user",
		Fields: []crud.Field{
			{Name: "email", Kind: crud.String, Rules: "required,email,max=160", Search: true},
			{Name: "userName", Kind: crud.String, Rules: "required,min=3,max=60", Search: true},
			{Name: "password", Kind: crud.String, Rules: "required,min=6,max=72", Hidden: true},
			{Name: "firstName", Kind: crud.String, Rules: "omitempty,max=80", Search: true},
			{Name: "lastName", Kind: crud.String, Rules: "omitempty,max=80", Search: true},
			{Name: "phone", Kind: crud.String, Rules: phoneRules},
			{Name: "status", Kind: crud.String, Rules: "omitempty,oneof=ACTIVE DISABLED BLOCKED"},
			{Name: "attempts", Kind: crud.Int, Internal: true},
			{Name: "blockedAt", Kind: crud.Time, Internal: true},
		},
		References: []crud.Reference{
			ref("profile", Profiles, "Profile does not exist", true, "name", "description"),
			ref("region", Regions, "Region does not exist", false),
			ref("enterprise", Enterprises, "Enterprise does not exist", false),
		},
		Unique: []string{"email", "userName"},
	}
}

// Log fields are written by the audit emitter only.
func logDescriptor() *crud.Descriptor {
	internal := func(name string, kind crud.Kind, search bool) crud.Field {
		return crud.Field{Name: name, Kind: kind, Internal: true, Search: search}
	}
	return &crud.Descriptor{
		Collection: Logs,
		Entity:     "log",
		Fields: []crud.Field{
			internal("action", crud.String, true),
			internal("actor", crud.String, true),
			internal("state", crud.String, false),
			internal("method", crud.String, false),
			internal("url", crud.String, true),
			internal("host", crud.String, false),
			internal("userAgent", crud.String, false),
			internal("ip", crud.String, false),
			internal("code", crud.Int, false),
			internal("duration", crud.Int, false),
			internal("error", crud.String, true),
			internal("version", crud.String, false),
		},
	}
}
