package route

// Permission is the permission bit set of a topic on a broker
type Permission int32

const (
	PermPriority Permission = 0x1 << 3
	PermRead     Permission = 0x1 << 2
	PermWrite    Permission = 0x1 << 1
	PermInherit  Permission = 0x1 << 0
)

func (p Permission) IsReadable() bool {
	return p&PermRead == PermRead
}

func (p Permission) IsWriteable() bool {
	return p&PermWrite == PermWrite
}

func (p Permission) IsInherited() bool {
	return p&PermInherit == PermInherit
}

// String renders the permission like "RW-" (read, write, inherit)
func (p Permission) String() string {
	b := []byte("---")
	if p.IsReadable() {
		b[0] = 'R'
	}
	if p.IsWriteable() {
		b[1] = 'W'
	}
	if p.IsInherited() {
		b[2] = 'X'
	}
	return string(b)
}
