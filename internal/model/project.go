package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Project is a board: a named container of sections and tasks inside a
// workspace.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Logo is a selectable project logo. The icon is prefixed to the project
// name when the project is created.
type Logo struct {
	Color string
	Icon  string
}

// Logos is the fixed palette offered by the create-project form.
var Logos = []Logo{
	{Color: "#FF6B6B", Icon: "🛠️"},
	{Color: "#4ECDC4", Icon: "⚙️"},
	{Color: "#45B7D1", Icon: "🚀"},
	{Color: "#96CEB4", Icon: "🔑"},
	{Color: "#FFEAA7", Icon: "⏰"},
	{Color: "#DDA0DD", Icon: "🍄"},
	{Color: "#98D8C8", Icon: "👨‍🚀"},
	{Color: "#F7DC6F", Icon: "👀"},
	{Color: "#BB8FCE", Icon: "🔘"},
	{Color: "#85C1E9", Icon: "✈️"},
	{Color: "#F8C471", Icon: "👨‍💻"},
	{Color: "#82E0AA", Icon: "⭐"},
	{Color: "#F1948A", Icon: "📚"},
}

// Project name length bounds, counted in runes.
const (
	ProjectNameMin = 5
	ProjectNameMax = 30
)

// ProjectInput is the create-project form value.
type ProjectInput struct {
	Name      string
	LogoIndex int
}

// Validate checks the form value locally, before any remote call.
func (in ProjectInput) Validate() error {
	verr := ValidationError{}
	if msg := ValidateProjectName(in.Name); msg != "" {
		verr["projectName"] = msg
	}
	if in.LogoIndex < 0 || in.LogoIndex >= len(Logos) {
		verr["logoIndex"] = "Select a logo"
	}
	return verr.OrNil()
}

// DisplayName is the name sent to the remote API: the logo icon, a space,
// then the trimmed name.
func (in ProjectInput) DisplayName() string {
	icon := Logos[0].Icon
	if in.LogoIndex >= 0 && in.LogoIndex < len(Logos) {
		icon = Logos[in.LogoIndex].Icon
	}
	return fmt.Sprintf("%s %s", icon, strings.TrimSpace(in.Name))
}

// ValidateProjectName returns the user-facing message for an invalid name,
// or "" when the name is acceptable.
func ValidateProjectName(name string) string {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n == 0:
		return "Project name is required"
	case n < ProjectNameMin:
		return fmt.Sprintf("Project name must be at least %d characters", ProjectNameMin)
	case n > ProjectNameMax:
		return fmt.Sprintf("Project name must be less than %d characters", ProjectNameMax)
	}
	return ""
}
