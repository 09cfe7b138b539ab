package game

import "fmt"

// ItemID packs an item category into the top nibble and the param row id
// into the low 28 bits.
type ItemID uint32

type Category uint8

const (
	CategoryWeapon    Category = 0x0
	CategoryProtector Category = 0x1
	CategoryAccessory Category = 0x2
	CategoryGoods     Category = 0x4
)

func (c Category) String() string {
	switch c {
	case CategoryWeapon:
		return "weapon"
	case CategoryProtector:
		return "protector"
	case CategoryAccessory:
		return "accessory"
	case CategoryGoods:
		return "goods"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

func ParseCategory(s string) (Category, error) {
	switch s {
	case "weapon":
		return CategoryWeapon, nil
	case "protector":
		return CategoryProtector, nil
	case "accessory":
		return CategoryAccessory, nil
	case "goods":
		return CategoryGoods, nil
	default:
		return 0, fmt.Errorf("unknown item category %q", s)
	}
}

func NewItemID(c Category, paramID uint32) ItemID {
	return ItemID(uint32(c)<<28 | paramID&0x0FFFFFFF)
}

func (id ItemID) Category() Category { return Category(uint32(id) >> 28) }
func (id ItemID) ParamID() uint32    { return uint32(id) & 0x0FFFFFFF }

func (id ItemID) String() string {
	return fmt.Sprintf("%s:%d", id.Category(), id.ParamID())
}

// Placeholder goods rows occupy this param id range. Each one stands in for a
// randomized location until it is picked up and resolved.
const (
	PlaceholderParamMin uint32 = 3_780_000
	PlaceholderParamMax uint32 = 3_999_999
)

// IsPlaceholder reports whether id is a synthetic location marker.
func (id ItemID) IsPlaceholder() bool {
	p := id.ParamID()
	return id.Category() == CategoryGoods && p >= PlaceholderParamMin && p <= PlaceholderParamMax
}
