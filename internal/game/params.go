package game

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EquipParam is one row of the game's equipment parameter tables. The set of
// row kinds is closed: WeaponRow, ProtectorRow, AccessoryRow, GoodsRow.
type EquipParam interface {
	Category() Category
	// LocationID is the server location a placeholder row stands in for.
	LocationID() int64
	// Reward is the local item the placeholder converts into, if the reward
	// belongs to this world.
	Reward() (id ItemID, quantity uint32, ok bool)
	BasicPrice() int32
	SellValue() int32

	sealed()
}

// RowBase holds the fields shared by every row kind.
type RowBase struct {
	Location  int64
	RewardID  ItemID
	RewardQty uint32
	Price     int32
	Sell      int32
}

func (r RowBase) LocationID() int64 { return r.Location }
func (r RowBase) BasicPrice() int32 { return r.Price }
func (r RowBase) SellValue() int32  { return r.Sell }

func (r RowBase) Reward() (ItemID, uint32, bool) {
	if r.RewardID == 0 {
		return 0, 0, false
	}
	q := r.RewardQty
	if q == 0 {
		q = 1
	}
	return r.RewardID, q, true
}

func (RowBase) sealed() {}

type WeaponRow struct{ RowBase }
type ProtectorRow struct{ RowBase }
type AccessoryRow struct{ RowBase }

type GoodsRow struct {
	RowBase
	IconID int16
}

func (WeaponRow) Category() Category    { return CategoryWeapon }
func (ProtectorRow) Category() Category { return CategoryProtector }
func (AccessoryRow) Category() Category { return CategoryAccessory }
func (GoodsRow) Category() Category     { return CategoryGoods }

// ParamTable is an in-memory Params implementation.
type ParamTable struct {
	rows map[ItemID]EquipParam
}

func NewParamTable() *ParamTable {
	return &ParamTable{rows: map[ItemID]EquipParam{}}
}

func (t *ParamTable) Put(id ItemID, row EquipParam) {
	t.rows[id] = row
}

func (t *ParamTable) EquipParam(id ItemID) (EquipParam, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *ParamTable) Len() int { return len(t.rows) }

type paramsFile struct {
	Rows []paramRow `yaml:"rows"`
}

type paramRow struct {
	Category   string `yaml:"category"`
	ParamID    uint32 `yaml:"param_id"`
	Location   int64  `yaml:"location"`
	Reward     string `yaml:"reward,omitempty"`
	Quantity   uint32 `yaml:"quantity,omitempty"`
	BasicPrice int32  `yaml:"basic_price,omitempty"`
	SellValue  int32  `yaml:"sell_value,omitempty"`
	IconID     int16  `yaml:"icon_id,omitempty"`
}

// LoadParams reads a params.yaml file.
func LoadParams(path string) (*ParamTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := ParseParams(raw)
	if err != nil {
		return nil, fmt.Errorf("params.yaml: %w", err)
	}
	return t, nil
}

// ParseParams decodes the params.yaml format. Rewards are written as
// "<category>:<param_id>".
func ParseParams(raw []byte) (*ParamTable, error) {
	var f paramsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := NewParamTable()
	for i, r := range f.Rows {
		cat, err := ParseCategory(r.Category)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		base := RowBase{
			Location:  r.Location,
			RewardQty: r.Quantity,
			Price:     r.BasicPrice,
			Sell:      r.SellValue,
		}
		if r.Reward != "" {
			id, err := ParseItemID(r.Reward)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			base.RewardID = id
		}
		id := NewItemID(cat, r.ParamID)
		if _, dup := t.rows[id]; dup {
			return nil, fmt.Errorf("row %d: duplicate %s", i, id)
		}
		switch cat {
		case CategoryWeapon:
			t.Put(id, WeaponRow{base})
		case CategoryProtector:
			t.Put(id, ProtectorRow{base})
		case CategoryAccessory:
			t.Put(id, AccessoryRow{base})
		case CategoryGoods:
			t.Put(id, GoodsRow{RowBase: base, IconID: r.IconID})
		}
	}
	return t, nil
}

// ParseItemID parses the "<category>:<param_id>" form produced by
// ItemID.String.
func ParseItemID(s string) (ItemID, error) {
	cat, param, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("item id %q: expected <category>:<param_id>", s)
	}
	c, err := ParseCategory(cat)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(param, 10, 28)
	if err != nil {
		return 0, fmt.Errorf("item id %q: %w", s, err)
	}
	return NewItemID(c, uint32(n)), nil
}
