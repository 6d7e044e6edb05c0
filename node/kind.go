package node

// Kind identifies which of the seven value variants a node holds. The
// numeric values are the on-disk type tags and are a fixed
// on-disk compatibility contract -- never renumber them.
type Kind byte

const (
	Integer Kind = 0x10
	Real    Kind = 0x20
	Boolean Kind = 0x30
	String  Kind = 0x40
	Array   Kind = 0x50
	Object  Kind = 0x60
	Null    Kind = 0x70
)

// Name returns the human-readable type name used in error messages.
func (k Kind) Name() string {
	switch k {
	case Integer:
		return "Integer"
	case Real:
		return "Real"
	case Boolean:
		return "Boolean"
	case String:
		return "String"
	case Array:
		return "Array"
	case Object:
		return "Object"
	case Null:
		return "Null"
	default:
		return "Unknown"
	}
}
