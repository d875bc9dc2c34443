package administrations

type ActorType string

const (
	ActorTypeClinician      ActorType = "CLINICIAN"
	ActorTypeCaregiver      ActorType = "CAREGIVER"
	ActorTypeExternalSystem ActorType = "EXTERNAL_SYSTEM"
)

type Source string

const (
	SourceManual      Source = "manual"
	SourceDevice      Source = "device"
	SourceIntegration Source = "integration"
)

type Status string

const (
	StatusActive Status = "active"
	StatusVoided Status = "voided"
)
