package resource

import (
	"errors"
	"fmt"
	"strings"
)

var ErrResourceNotFound = errors.New("resource not found")
var ErrUnknownType = errors.New("unknown resource type")

// Type is the closed set of bookable resource kinds.
type Type string

const (
	Employee         Type = "employee"
	Vehicle          Type = "vehicle"
	Tool             Type = "tool"
	Pipeline         Type = "pipeline"
	ProjectAggregate Type = "project"
	ServiceCase      Type = "service_case"
)

var Types = []Type{Employee, Vehicle, Tool, Pipeline, ProjectAggregate, ServiceCase}

func ParseType(value string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Types {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, value)
}

// Category groups resources for display. Unknown categories fall back to CategoryOther.
type Category string

const (
	CategoryPersonnel      Category = "personnel"
	CategoryFleet          Category = "fleet"
	CategoryEquipment      Category = "equipment"
	CategoryInfrastructure Category = "infrastructure"
	CategoryProjects       Category = "projects"
	CategoryService        Category = "service"
	CategoryOther          Category = "other"
)

const DefaultColor = "#64748b"

var categoryColors = map[Category]string{
	CategoryPersonnel:      "#2563eb",
	CategoryFleet:          "#16a34a",
	CategoryEquipment:      "#d97706",
	CategoryInfrastructure: "#7c3aed",
	CategoryProjects:       "#0891b2",
	CategoryService:        "#dc2626",
	CategoryOther:          DefaultColor,
}

func ParseCategory(value string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := categoryColors[c]; ok {
		return c
	}
	return CategoryOther
}

func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return DefaultColor
}

type Resource struct {
	Id       int
	Name     string
	Type     Type
	Category Category
}

// ResolveColor returns the event override when set, otherwise the colour of
// the resource category. r may be nil when the resource is no longer known.
func ResolveColor(override string, r *Resource) string {
	if override != "" {
		return override
	}
	if r == nil {
		return DefaultColor
	}
	return r.Category.Color()
}
