package ui

import (
	"fmt"
	"strings"

	"github.com/tranqh91/nimbus/pkg/types"
)

// Fleet table column widths
var fleetColumnWidths = []int{26, 10, 16, 15, 14, 18}

// PrintFleetTable prints fleet instances in a styled box table
func PrintFleetTable(instances []types.Instance) {
	headers := []string{"Name", "State", "External IP", "Internal IP", "Type", "Zone"}

	var sb strings.Builder

	writeBorder(&sb, TopLeft, TopT, TopRight)

	// Header row
	sb.WriteString(BorderStyle.Render(Vertical))
	for i, h := range headers {
		cell := " " + padRight(h, fleetColumnWidths[i]) + " "
		sb.WriteString(HeaderStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))
	}
	sb.WriteString("\n")

	writeBorder(&sb, LeftT, Cross, RightT)

	// Data rows
	for _, inst := range instances {
		sb.WriteString(BorderStyle.Render(Vertical))

		cell := " " + padRight(inst.Name, fleetColumnWidths[0]) + " "
		sb.WriteString(NameStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))

		sb.WriteString(formatStateCell(string(inst.State), fleetColumnWidths[1]))
		sb.WriteString(BorderStyle.Render(Vertical))

		cell = " " + padRight(inst.PublicIP, fleetColumnWidths[2]) + " "
		sb.WriteString(IPStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))

		cell = " " + padRight(inst.PrivateIP, fleetColumnWidths[3]) + " "
		sb.WriteString(IPStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))

		cell = " " + padRight(inst.Type, fleetColumnWidths[4]) + " "
		sb.WriteString(TypeStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))

		cell = " " + padRight(inst.Zone, fleetColumnWidths[5]) + " "
		sb.WriteString(ZoneStyle.Render(cell))
		sb.WriteString(BorderStyle.Render(Vertical))

		sb.WriteString("\n")
	}

	writeBorder(&sb, BottomLeft, BottomT, BottomRight)

	fmt.Print(sb.String())
	fmt.Printf("  %d instances\n", len(instances))
}

// writeBorder writes one horizontal border line using the given junctions
func writeBorder(sb *strings.Builder, left, mid, right string) {
	sb.WriteString(BorderStyle.Render(left))
	for i, w := range fleetColumnWidths {
		sb.WriteString(BorderStyle.Render(strings.Repeat(Horizontal, w+2)))
		if i < len(fleetColumnWidths)-1 {
			sb.WriteString(BorderStyle.Render(mid))
		}
	}
	sb.WriteString(BorderStyle.Render(right))
	sb.WriteString("\n")
}

// FormatState renders a state string with its indicator dot
func FormatState(state string) string {
	switch state {
	case "running":
		return RunningStyle.Render("● running")
	case "stopped":
		return StoppedStyle.Render("○ stopped")
	case "pending", "stopping":
		return PendingStyle.Render("◐ " + state)
	default:
		return state
	}
}

func formatStateCell(state string, width int) string {
	var indicator string
	style := StoppedStyle

	switch state {
	case "running":
		indicator = "●"
		style = RunningStyle
	case "stopped":
		indicator = "○"
	case "pending", "stopping":
		indicator = "◐"
		style = PendingStyle
	default:
		indicator = "○"
	}

	cell := " " + padRight(indicator+" "+state, width) + " "
	return style.Render(cell)
}
