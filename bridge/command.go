package bridge

// LightCommand is a sparse state update for a light or grouped light. Only
// fields that were explicitly set serialize to the wire; an absent field
// leaves the corresponding bridge state untouched, which is not the same as
// sending a zero value.
type LightCommand struct {
	On               *On              `json:"on,omitempty"`
	Dimming          *CommandDimming  `json:"dimming,omitempty"`
	ColorTemperature *CommandMirek    `json:"color_temperature,omitempty"`
	Color            *CommandColor    `json:"color,omitempty"`
	Dynamics         *CommandDynamics `json:"dynamics,omitempty"`
}

type CommandDimming struct {
	Brightness float64 `json:"brightness"`
}

type CommandMirek struct {
	Mirek uint16 `json:"mirek"`
}

type CommandColor struct {
	XY XY `json:"xy"`
}

type CommandDynamics struct {
	Duration *uint32  `json:"duration,omitempty"`
	Speed    *float64 `json:"speed,omitempty"`
}

// WithOn turns the target on.
func (c LightCommand) WithOn() LightCommand {
	c.On = &On{On: true}
	return c
}

// WithOff turns the target off.
func (c LightCommand) WithOff() LightCommand {
	c.On = &On{On: false}
	return c
}

// WithBrightness sets the brightness percentage (0-100).
func (c LightCommand) WithBrightness(brightness float64) LightCommand {
	c.Dimming = &CommandDimming{Brightness: brightness}
	return c
}

// WithMirek sets the color temperature in mirek (153-500).
func (c LightCommand) WithMirek(mirek uint16) LightCommand {
	c.ColorTemperature = &CommandMirek{Mirek: mirek}
	return c
}

// WithXY sets the color as a CIE xy chromaticity pair.
func (c LightCommand) WithXY(x, y float64) LightCommand {
	c.Color = &CommandColor{XY: XY{X: x, Y: y}}
	return c
}

// WithTransitionTime sets the transition duration in milliseconds.
func (c LightCommand) WithTransitionTime(ms uint32) LightCommand {
	dynamics := c.Dynamics
	if dynamics == nil {
		dynamics = &CommandDynamics{}
	}
	dynamics.Duration = &ms
	c.Dynamics = dynamics
	return c
}

// scene recall payloads; plain scenes use "active", smart scenes "activate".
type sceneRecall struct {
	Action string `json:"action"`
}

type sceneRecallCommand struct {
	Recall sceneRecall `json:"recall"`
}
