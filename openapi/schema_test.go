package openapi

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inline(t *testing.T, c Component) *Schema {
	t.Helper()
	name, s := c.OpenAPISchema()
	require.Empty(t, name)
	return s
}

func TestDescribePrimitives(t *testing.T) {
	tests := []struct {
		name   string
		c      Component
		typ    string
		format string
	}{
		{"bool", TypeOf[bool](), "boolean", ""},
		{"int", TypeOf[int](), "integer", ""},
		{"int32", TypeOf[int32](), "integer", "int32"},
		{"int64", TypeOf[int64](), "integer", "int64"},
		{"uint", TypeOf[uint](), "integer", ""},
		{"float32", TypeOf[float32](), "number", "float"},
		{"float64", TypeOf[float64](), "number", "double"},
		{"string", TypeOf[string](), "string", ""},
		{"time.Time", TypeOf[time.Time](), "string", "date-time"},
		{"uuid.UUID", TypeOf[uuid.UUID](), "string", "uuid"},
		{"[]byte", TypeOf[[]byte](), "string", "byte"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := inline(t, tt.c)
			require.NotNil(t, s)
			assert.Equal(t, tt.typ, s.Type)
			assert.Equal(t, tt.format, s.Format)
		})
	}

	t.Run("json.RawMessage is unconstrained", func(t *testing.T) {
		s := inline(t, TypeOf[json.RawMessage]())
		assert.Equal(t, "{}", mustJSON(t, s))
	})

	t.Run("nil value", func(t *testing.T) {
		assert.Nil(t, Describe(nil))
		assert.Nil(t, DescribeType(nil))
	})

	t.Run("pointer describes element", func(t *testing.T) {
		s := inline(t, Describe(new(int)))
		assert.Equal(t, "integer", s.Type)
	})
}

func TestDescribeContainers(t *testing.T) {
	t.Run("slice", func(t *testing.T) {
		s := inline(t, TypeOf[[]string]())
		assert.Equal(t, "array", s.Type)
		require.NotNil(t, s.Items)
		assert.Equal(t, "string", s.Items.Type)
	})

	t.Run("array has fixed length", func(t *testing.T) {
		s := inline(t, TypeOf[[3]int]())
		assert.Equal(t, "array", s.Type)
		require.NotNil(t, s.MinItems)
		require.NotNil(t, s.MaxItems)
		assert.Equal(t, 3, *s.MinItems)
		assert.Equal(t, 3, *s.MaxItems)
	})

	t.Run("map with string keys", func(t *testing.T) {
		s := inline(t, TypeOf[map[string]int]())
		assert.Equal(t, "object", s.Type)
		require.NotNil(t, s.AdditionalProperties)
		assert.Equal(t, "integer", s.AdditionalProperties.Type)
	})

	t.Run("map with int keys", func(t *testing.T) {
		s := inline(t, TypeOf[map[int]string]())
		assert.Equal(t, "object", s.Type)
		assert.Nil(t, s.AdditionalProperties)
	})

	t.Run("slice of named structs references the element", func(t *testing.T) {
		c := TypeOf[[]Pet]()
		s := inline(t, c)
		assert.Equal(t, "#/components/schemas/Pet", s.Items.Ref)

		children := c.OpenAPIChildren()
		require.Len(t, children, 1)
		name, _ := children[0].OpenAPISchema()
		assert.Equal(t, "Pet", name)
	})

	t.Run("interface", func(t *testing.T) {
		s := inline(t, TypeOf[any]())
		assert.Equal(t, "{}", mustJSON(t, s))
	})
}

func TestDescribeStruct(t *testing.T) {
	name, s := TypeOf[Pet]().OpenAPISchema()
	require.NotNil(t, s)
	assert.Equal(t, "Pet", name)
	assert.Equal(t, "object", s.Type)

	t.Run("required fields", func(t *testing.T) {
		assert.Equal(t, []string{"id", "name", "kind", "bornAt"}, s.Required)
	})

	t.Run("special types", func(t *testing.T) {
		assert.Equal(t, "uuid", s.Properties["id"].Format)
		assert.Equal(t, "date-time", s.Properties["bornAt"].Format)
	})

	t.Run("openapi tag", func(t *testing.T) {
		p := s.Properties["name"]
		require.NotNil(t, p.MinLength)
		require.NotNil(t, p.MaxLength)
		assert.Equal(t, 1, *p.MinLength)
		assert.Equal(t, 64, *p.MaxLength)
	})

	t.Run("enum field is a reference", func(t *testing.T) {
		assert.Equal(t, "#/components/schemas/PetKind", s.Properties["kind"].Ref)
	})

	t.Run("nullable reference is wrapped in allOf", func(t *testing.T) {
		p := s.Properties["owner"]
		assert.True(t, p.Nullable)
		assert.Empty(t, p.Ref)
		require.Len(t, p.AllOf, 1)
		assert.Equal(t, "#/components/schemas/Owner", p.AllOf[0].Ref)
	})

	t.Run("direct children only", func(t *testing.T) {
		var names []string
		for _, child := range TypeOf[Pet]().OpenAPIChildren() {
			n, _ := child.OpenAPISchema()
			names = append(names, n)
		}
		assert.Equal(t, []string{"PetKind", "Owner"}, names)
	})

	t.Run("json dash and unexported fields are skipped", func(t *testing.T) {
		type hidden struct {
			Visible string `json:"visible"`
			Skipped string `json:"-"`
			private string
		}
		_ = hidden{private: ""}
		s := inline(t, TypeOf[hidden]())
		assert.Len(t, s.Properties, 1)
		assert.Contains(t, s.Properties, "visible")
	})

	t.Run("field name fallback", func(t *testing.T) {
		s := inline(t, TypeOf[struct{ Count int }]())
		assert.Contains(t, s.Properties, "Count")
		assert.Equal(t, []string{"Count"}, s.Required)
	})

	t.Run("nullable primitive", func(t *testing.T) {
		s := inline(t, TypeOf[struct {
			Note *string `json:"note"`
		}]())
		p := s.Properties["note"]
		assert.Equal(t, "string", p.Type)
		assert.True(t, p.Nullable)
		assert.Empty(t, s.Required)
	})

	t.Run("string option", func(t *testing.T) {
		s := inline(t, TypeOf[struct {
			ID int64 `json:"id,string"`
		}]())
		assert.Equal(t, "string", s.Properties["id"].Type)
		assert.Empty(t, s.Properties["id"].Format)
	})
}

type Timestamps struct {
	CreatedAt time.Time `json:"createdAt"`
}

type Audited struct {
	Timestamps
	*Owner
	Note string `json:"note"`
}

func TestDescribeEmbedded(t *testing.T) {
	c := TypeOf[Audited]()
	name, s := c.OpenAPISchema()
	assert.Equal(t, "Audited", name)

	t.Run("fields are promoted", func(t *testing.T) {
		assert.Contains(t, s.Properties, "createdAt")
		assert.Contains(t, s.Properties, "name")
		assert.Contains(t, s.Properties, "note")
		assert.NotContains(t, s.Properties, "Timestamps")
	})

	t.Run("pointer-embedded fields are optional", func(t *testing.T) {
		assert.Equal(t, []string{"createdAt", "note"}, s.Required)
	})

	t.Run("embedded types are not components", func(t *testing.T) {
		reg := NewRegistry()
		_, err := reg.Resolve(c)
		require.NoError(t, err)
		assert.Equal(t, []string{"Audited"}, reg.Names())
	})
}

type shadowBase struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Note string `json:"note,omitempty"`
}

type shadowOther struct {
	Kind int `json:"kind"`
}

type shadowed struct {
	ID int `json:"id"`
	shadowBase
	shadowOther
}

type labelTagged struct {
	Label string `json:"Label"`
}

type labelPlain struct {
	Label int
}

type labelTie struct {
	labelTagged
	labelPlain
}

type selfEmbedding struct {
	*selfEmbedding
	Name string `json:"name"`
}

func TestDescribeFieldDominance(t *testing.T) {
	t.Run("shallower field wins", func(t *testing.T) {
		_, s := TypeOf[shadowed]().OpenAPISchema()
		assert.Equal(t, "integer", s.Properties["id"].Type)
		assert.Equal(t, []string{"id"}, s.Required)
		assert.Contains(t, s.Properties, "note")
	})

	t.Run("equal depth without a single tag drops the name", func(t *testing.T) {
		_, s := TypeOf[shadowed]().OpenAPISchema()
		assert.NotContains(t, s.Properties, "kind")
	})

	t.Run("equal depth with a single tag keeps the tagged field", func(t *testing.T) {
		_, s := TypeOf[labelTie]().OpenAPISchema()
		assert.Equal(t, "string", s.Properties["Label"].Type)
		assert.Equal(t, []string{"Label"}, s.Required)
	})

	t.Run("matches encoding/json", func(t *testing.T) {
		data, err := json.Marshal(shadowed{ID: 7, shadowBase: shadowBase{ID: "x", Kind: "y"}, shadowOther: shadowOther{Kind: 1}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":7}`, string(data))
	})

	t.Run("self embedding terminates", func(t *testing.T) {
		_, s := TypeOf[selfEmbedding]().OpenAPISchema()
		assert.Equal(t, []string{"name"}, s.Required)
		assert.Len(t, s.Properties, 1)
	})
}

type (
	Trie   map[string]Trie
	Nested []Nested
	Forest []Grove
	Grove  map[string]Forest
	Chain  *struct {
		Next Chain `json:"next"`
	}
	Labels      []string
	Index       map[string]indexEntry
	indexEntry  struct{ Sub Index }
	fixedNested [2]*fixedNested
)

func TestDescribeRecursiveContainers(t *testing.T) {
	t.Run("map", func(t *testing.T) {
		name, s := TypeOf[Trie]().OpenAPISchema()
		assert.Equal(t, "Trie", name)
		assert.Equal(t, "object", s.Type)
		assert.Equal(t, "#/components/schemas/Trie", s.AdditionalProperties.Ref)
	})

	t.Run("slice", func(t *testing.T) {
		name, s := TypeOf[Nested]().OpenAPISchema()
		assert.Equal(t, "Nested", name)
		assert.Equal(t, "#/components/schemas/Nested", s.Items.Ref)
	})

	t.Run("array of pointers", func(t *testing.T) {
		name, s := TypeOf[fixedNested]().OpenAPISchema()
		assert.Equal(t, "fixedNested", name)
		require.Len(t, s.Items.AllOf, 1)
		assert.Equal(t, "#/components/schemas/fixedNested", s.Items.AllOf[0].Ref)
	})

	t.Run("mutual recursion", func(t *testing.T) {
		reg := NewRegistry()
		ref, err := reg.Resolve(TypeOf[Forest]())
		require.NoError(t, err)
		assert.Equal(t, "#/components/schemas/Forest", ref.Ref)
		assert.Equal(t, []string{"Forest", "Grove"}, reg.Names())

		grove, _ := reg.Lookup("Grove")
		assert.Equal(t, "#/components/schemas/Forest", grove.AdditionalProperties.Ref)
	})

	t.Run("named pointer", func(t *testing.T) {
		name, s := TypeOf[Chain]().OpenAPISchema()
		assert.Equal(t, "Chain", name)
		assert.True(t, s.Nullable)
		require.Len(t, s.Properties["next"].AllOf, 1)
		assert.Equal(t, "#/components/schemas/Chain", s.Properties["next"].AllOf[0].Ref)
	})

	t.Run("non-recursive containers stay inline", func(t *testing.T) {
		assert.Empty(t, schemaName(reflect.TypeFor[Labels]()))
		assert.Empty(t, schemaName(reflect.TypeFor[Index]()))

		reg := NewRegistry()
		_, err := reg.Resolve(TypeOf[indexEntry]())
		require.NoError(t, err)
		assert.Equal(t, []string{"indexEntry"}, reg.Names())
	})

	t.Run("registered through an operation", func(t *testing.T) {
		b := NewBuilder(testInfo)
		require.NoError(t, b.RegisterOperation("/tries", "GET", NewOperation().Output(Trie{})))
		require.NoError(t, b.RegisterSchema(Nested{}))

		doc, err := b.Finalize()
		require.NoError(t, err)
		assert.Equal(t, []string{"Trie", "Nested"}, doc.SchemaNames())
	})
}

func TestOpenAPITag(t *testing.T) {
	type tagged struct {
		Age    int      `json:"age" openapi:"description=Age in years,minimum=0,maximum=150,example=30,default=18"`
		Score  float64  `json:"score" openapi:"exclusiveMinimum=0,exclusiveMaximum=1,multipleOf=0.01"`
		Code   string   `json:"code" openapi:"pattern=^[A-Z]{3}$,title=Code,format=iso"`
		Level  string   `json:"level" openapi:"enum=low|mid|high"`
		Counts []int    `json:"counts" openapi:"minItems=1,maxItems=5,uniqueItems"`
		Flags  []string `json:"flags" openapi:"deprecated,readOnly"`
		Secret string   `json:"secret" openapi:"writeOnly,nullable"`
		Owner  Owner    `json:"owner" openapi:"description=Owner of record"`
	}

	s := inline(t, TypeOf[tagged]())

	t.Run("numeric bounds", func(t *testing.T) {
		p := s.Properties["age"]
		assert.Equal(t, "Age in years", p.Description)
		assert.Equal(t, 0.0, *p.Minimum)
		assert.Equal(t, 150.0, *p.Maximum)
		assert.Equal(t, int64(30), p.Example)
		assert.Equal(t, int64(18), p.Default)
	})

	t.Run("exclusive bounds use booleans", func(t *testing.T) {
		p := s.Properties["score"]
		assert.True(t, p.ExclusiveMinimum)
		assert.True(t, p.ExclusiveMaximum)
		assert.Equal(t, 0.0, *p.Minimum)
		assert.Equal(t, 1.0, *p.Maximum)
		assert.Equal(t, 0.01, *p.MultipleOf)
	})

	t.Run("string keywords", func(t *testing.T) {
		p := s.Properties["code"]
		assert.Equal(t, "^[A-Z]{3}$", p.Pattern)
		assert.Equal(t, "Code", p.Title)
		assert.Equal(t, "iso", p.Format)
	})

	t.Run("enum", func(t *testing.T) {
		assert.Equal(t, []any{"low", "mid", "high"}, s.Properties["level"].Enum)
	})

	t.Run("array keywords", func(t *testing.T) {
		p := s.Properties["counts"]
		assert.Equal(t, 1, *p.MinItems)
		assert.Equal(t, 5, *p.MaxItems)
		assert.True(t, p.UniqueItems)
	})

	t.Run("flags", func(t *testing.T) {
		assert.True(t, s.Properties["flags"].Deprecated)
		assert.True(t, s.Properties["flags"].ReadOnly)
		assert.True(t, s.Properties["secret"].WriteOnly)
		assert.True(t, s.Properties["secret"].Nullable)
	})

	t.Run("tagged reference keeps keywords through allOf", func(t *testing.T) {
		p := s.Properties["owner"]
		assert.Empty(t, p.Ref)
		assert.Equal(t, "Owner of record", p.Description)
		require.Len(t, p.AllOf, 1)
		assert.Equal(t, "#/components/schemas/Owner", p.AllOf[0].Ref)
	})
}

func TestEnumer(t *testing.T) {
	name, s := TypeOf[PetKind]().OpenAPISchema()
	assert.Equal(t, "PetKind", name)
	assert.Equal(t, "string", s.Type)
	assert.Equal(t, []any{"cat", "dog"}, s.Enum)
}

type Cat struct {
	Indoor bool `json:"indoor"`
}

type Dog struct {
	Breed string `json:"breed"`
}

type Animal struct{}

func (Animal) OpenAPIOneOf() []any { return []any{Cat{}, Dog{}} }

func TestOneOfer(t *testing.T) {
	c := TypeOf[Animal]()
	name, s := c.OpenAPISchema()
	assert.Equal(t, "Animal", name)
	require.Len(t, s.OneOf, 2)
	assert.Equal(t, "#/components/schemas/Cat", s.OneOf[0].Ref)
	assert.Equal(t, "#/components/schemas/Dog", s.OneOf[1].Ref)

	reg := NewRegistry()
	_, err := reg.Resolve(c)
	require.NoError(t, err)
	assert.Equal(t, []string{"Animal", "Cat", "Dog"}, reg.Names())
}

type Renamed struct {
	Value string `json:"value"`
}

func (Renamed) OpenAPISchemaName() string { return "CustomName" }

type Sample struct {
	Name string `json:"name"`
}

func (Sample) OpenAPIExample() any { return Sample{Name: "Alice"} }

func TestSchemaNamerAndExampler(t *testing.T) {
	t.Run("namer", func(t *testing.T) {
		name, _ := TypeOf[Renamed]().OpenAPISchema()
		assert.Equal(t, "CustomName", name)

		s := inline(t, TypeOf[[]Renamed]())
		assert.Equal(t, "#/components/schemas/CustomName", s.Items.Ref)
	})

	t.Run("exampler", func(t *testing.T) {
		_, s := TypeOf[Sample]().OpenAPISchema()
		assert.Equal(t, Sample{Name: "Alice"}, s.Example)
	})
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

type Pair[K, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

func TestGenericNames(t *testing.T) {
	tests := []struct {
		name string
		c    Component
		want string
	}{
		{"struct argument", TypeOf[Page[Pet]](), "PagePet"},
		{"slice argument", TypeOf[Page[[]Pet]](), "PagePetList"},
		{"pointer argument", TypeOf[Page[*Pet]](), "PagePet"},
		{"primitive argument", TypeOf[Page[int]](), "PageInt"},
		{"map argument", TypeOf[Page[map[string]Pet]](), "PagePetMap"},
		{"two arguments", TypeOf[Pair[string, int64]](), "PairStringInt64"},
		{"nested generic", TypeOf[Page[Page[Pet]]](), "PagePagePet"},
		{"map argument with array key", TypeOf[Page[map[[2]int]Pet]](), "PagePetMap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, _ := tt.c.OpenAPISchema()
			assert.Equal(t, tt.want, name)
		})
	}

	t.Run("non-generic names are unchanged", func(t *testing.T) {
		assert.Equal(t, "Pet", sanitizeSchemaName("Pet"))
	})

	t.Run("map key brackets are matched", func(t *testing.T) {
		assert.Equal(t, "PageUserMap", sanitizeSchemaName("Page[map[[2]int]pkg.User]"))
		assert.Equal(t, "PageUserListMap", sanitizeSchemaName("Page[[]map[pkg.Key[int]]pkg.User]"))
	})
}

type Money struct {
	Cents int64
}

func (Money) OpenAPISchema() (string, *Schema) {
	return "", &Schema{Type: "string", Pattern: `^\d+\.\d{2}$`}
}

func (Money) OpenAPIChildren() []Component { return nil }

func TestCustomComponent(t *testing.T) {
	t.Run("own implementation wins over derivation", func(t *testing.T) {
		s := inline(t, TypeOf[Money]())
		assert.Equal(t, "string", s.Type)
		assert.Nil(t, s.Properties)
	})

	t.Run("nullable field does not mutate the shared schema", func(t *testing.T) {
		type invoice struct {
			Total    Money  `json:"total"`
			Discount *Money `json:"discount"`
		}
		s := inline(t, TypeOf[invoice]())
		assert.False(t, s.Properties["total"].Nullable)
		assert.True(t, s.Properties["discount"].Nullable)
	})

	t.Run("Describe returns components unchanged", func(t *testing.T) {
		c := Describe(Money{})
		_, ok := c.(Money)
		assert.True(t, ok)
	})
}

func TestDescribeType(t *testing.T) {
	c := DescribeType(reflect.TypeFor[*Pet]())
	name, _ := c.OpenAPISchema()
	assert.Equal(t, "Pet", name)
}
