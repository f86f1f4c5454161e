package bridge

import "github.com/samber/lo"

// ResourceIdentifier is a typed reference from one bridge resource to
// another: ownership, membership and service links all use it.
type ResourceIdentifier struct {
	RID   string `json:"rid"`
	RType string `json:"rtype"`
}

type Metadata struct {
	Name      string `json:"name,omitempty"`
	Archetype string `json:"archetype,omitempty"`
}

type On struct {
	On bool `json:"on"`
}

type Dimming struct {
	Brightness  float64  `json:"brightness"`
	MinDimLevel *float64 `json:"min_dim_level,omitempty"`
}

type MirekSchema struct {
	MirekMinimum uint16 `json:"mirek_minimum"`
	MirekMaximum uint16 `json:"mirek_maximum"`
}

type ColorTemperature struct {
	Mirek       *uint16      `json:"mirek,omitempty"`
	MirekValid  *bool        `json:"mirek_valid,omitempty"`
	MirekSchema *MirekSchema `json:"mirek_schema,omitempty"`
}

type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Gamut struct {
	Red   XY `json:"red"`
	Green XY `json:"green"`
	Blue  XY `json:"blue"`
}

type Color struct {
	XY    *XY    `json:"xy,omitempty"`
	Gamut *Gamut `json:"gamut,omitempty"`
}

type ProductData struct {
	ModelID          string `json:"model_id,omitempty"`
	ManufacturerName string `json:"manufacturer_name,omitempty"`
	ProductName      string `json:"product_name,omitempty"`
	ProductArchetype string `json:"product_archetype,omitempty"`
}

// Device is a physical product registered at the bridge. Its services list
// references the functional resources (lights, sensors, connectivity) it
// exposes.
type Device struct {
	ID          string               `json:"id"`
	IDV1        string               `json:"id_v1,omitempty"`
	ProductData *ProductData         `json:"product_data,omitempty"`
	Metadata    *Metadata            `json:"metadata,omitempty"`
	Services    []ResourceIdentifier `json:"services,omitempty"`
}

// LightServices returns the ids of all services of type light on this device.
func (d Device) LightServices() []string {
	return lo.FilterMap(d.Services, func(s ResourceIdentifier, _ int) (string, bool) {
		return s.RID, s.RType == "light"
	})
}

type Light struct {
	ID               string              `json:"id"`
	IDV1             string              `json:"id_v1,omitempty"`
	Owner            *ResourceIdentifier `json:"owner,omitempty"`
	Metadata         *Metadata           `json:"metadata,omitempty"`
	On               *On                 `json:"on,omitempty"`
	Dimming          *Dimming            `json:"dimming,omitempty"`
	ColorTemperature *ColorTemperature   `json:"color_temperature,omitempty"`
	Color            *Color              `json:"color,omitempty"`
}

// Room groups devices; its children reference devices, never lights
// directly.
type Room struct {
	ID       string               `json:"id"`
	IDV1     string               `json:"id_v1,omitempty"`
	Children []ResourceIdentifier `json:"children,omitempty"`
	Services []ResourceIdentifier `json:"services,omitempty"`
	Metadata *Metadata            `json:"metadata,omitempty"`
}

// Zone groups lights directly, skipping the device indirection rooms have.
type Zone struct {
	ID       string               `json:"id"`
	IDV1     string               `json:"id_v1,omitempty"`
	Children []ResourceIdentifier `json:"children,omitempty"`
	Services []ResourceIdentifier `json:"services,omitempty"`
	Metadata *Metadata            `json:"metadata,omitempty"`
}

type BridgeHome struct {
	ID       string               `json:"id"`
	IDV1     string               `json:"id_v1,omitempty"`
	Children []ResourceIdentifier `json:"children,omitempty"`
	Services []ResourceIdentifier `json:"services,omitempty"`
}

type GroupedLight struct {
	ID               string              `json:"id"`
	IDV1             string              `json:"id_v1,omitempty"`
	Owner            *ResourceIdentifier `json:"owner,omitempty"`
	On               *On                 `json:"on,omitempty"`
	Dimming          *Dimming            `json:"dimming,omitempty"`
	ColorTemperature *ColorTemperature   `json:"color_temperature,omitempty"`
	Color            *Color              `json:"color,omitempty"`
}

type SceneStatus struct {
	Active     string `json:"active,omitempty"`
	LastRecall string `json:"last_recall,omitempty"`
}

type Scene struct {
	ID       string              `json:"id"`
	IDV1     string              `json:"id_v1,omitempty"`
	Metadata *Metadata           `json:"metadata,omitempty"`
	Group    *ResourceIdentifier `json:"group,omitempty"`
	Status   *SceneStatus        `json:"status,omitempty"`
}

type SmartScene struct {
	ID       string              `json:"id"`
	IDV1     string              `json:"id_v1,omitempty"`
	Metadata *Metadata           `json:"metadata,omitempty"`
	Group    *ResourceIdentifier `json:"group,omitempty"`
}

// resource lets the generic fetch helpers sort and index any resource type
// by its stable id.
type resource interface {
	resourceID() string
}

func (d Device) resourceID() string       { return d.ID }
func (l Light) resourceID() string        { return l.ID }
func (r Room) resourceID() string         { return r.ID }
func (z Zone) resourceID() string         { return z.ID }
func (b BridgeHome) resourceID() string   { return b.ID }
func (g GroupedLight) resourceID() string { return g.ID }
func (s Scene) resourceID() string        { return s.ID }
func (s SmartScene) resourceID() string   { return s.ID }
