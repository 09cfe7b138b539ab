package ds3

import (
	_ "embed"
	"encoding/json"

	"soulslink.ai/internal/slotdata"
)

//go:embed slotdata.schema.json
var slotSchema string

// SlotData is the per-slot configuration the server sends on connect.
type SlotData struct {
	slotdata.ItemTable
	Options slotdata.Options `json:"options"`
	// Goal lists the event flags that must all be set to finish the game.
	Goal []uint32 `json:"goal"`
}

var decoder = slotdata.MustDecoder("ds3-slot-data.schema.json", slotSchema, func() SlotData {
	return SlotData{Options: slotdata.DefaultOptions()}
})

// DecodeSlotData validates and decodes the raw slot data of a DS3 slot.
func DecodeSlotData(raw json.RawMessage) (SlotData, error) {
	return decoder.Decode(raw)
}
