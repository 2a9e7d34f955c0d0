package alexa

// Namespaces and payload version of the ConnectedHome v2 skill API.
const (
	NamespaceDiscovery = "Alexa.ConnectedHome.Discovery"
	NamespaceControl   = "Alexa.ConnectedHome.Control"
	NamespaceSystem    = "Alexa.ConnectedHome.System"
	PayloadVersion     = "2"
)

// Header is common to directives and responses.
type Header struct {
	Namespace      string `json:"namespace"`
	Name           string `json:"name"`
	PayloadVersion string `json:"payloadVersion"`
	MessageID      string `json:"messageId,omitempty"`
}

// Directive is an incoming request from the skill.
type Directive struct {
	Header  Header  `json:"header"`
	Payload Payload `json:"payload"`
}

// Payload carries the request parameters. Only the fields relevant to the
// request name are set.
type Payload struct {
	AccessToken     string     `json:"accessToken"`
	Appliance       Appliance  `json:"appliance"`
	PercentageState Percentage `json:"percentageState"`
	DeltaPercentage Percentage `json:"deltaPercentage"`
	Color           HSB        `json:"color"`
	LockState       string     `json:"lockState,omitempty"`
}

// Appliance identifies the target of a control request.
type Appliance struct {
	ApplianceID string `json:"applianceId"`
}

// Percentage is a 0-100 value.
type Percentage struct {
	Value float64 `json:"value"`
}

// HSB is the skill's color: hue in degrees, saturation and brightness in [0,1].
type HSB struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Brightness float64 `json:"brightness"`
}

// Response is returned to the skill.
type Response struct {
	Header  Header `json:"header"`
	Payload any    `json:"payload"`
}

// DiscoveredAppliance describes one callable function to the skill.
type DiscoveredAppliance struct {
	ApplianceID                string            `json:"applianceId"`
	ManufacturerName           string            `json:"manufacturerName"`
	ModelName                  string            `json:"modelName"`
	Version                    string            `json:"version"`
	FriendlyName               string            `json:"friendlyName"`
	FriendlyDescription        string            `json:"friendlyDescription"`
	IsReachable                bool              `json:"isReachable"`
	Actions                    []string          `json:"actions"`
	AdditionalApplianceDetails map[string]string `json:"additionalApplianceDetails"`
}

// DiscoveryPayload lists the appliances.
type DiscoveryPayload struct {
	DiscoveredAppliances []DiscoveredAppliance `json:"discoveredAppliances"`
}

// HealthPayload answers a health check.
type HealthPayload struct {
	Description string `json:"description"`
	IsHealthy   bool   `json:"isHealthy"`
}

// ColorPayload confirms the color that was set.
type ColorPayload struct {
	AchievedState struct {
		Color HSB `json:"color"`
	} `json:"achievedState"`
}
