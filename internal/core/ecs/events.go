package ecs

// Entity events, emitted on Entity.Events().

type ComponentAdded struct {
	Entity    *Entity
	Component Component
}

type ComponentRemoved struct {
	Entity    *Entity
	Component Component
}

type TagAdded struct {
	Entity *Entity
	Tag    string
}

type TagRemoved struct {
	Entity *Entity
	Tag    string
}

type Activated struct{ Entity *Entity }
type Deactivated struct{ Entity *Entity }

// Destroyed is the last event an entity emits; its bus is closed right after.
type Destroyed struct{ Entity *Entity }

// Registry events, emitted on Registry.Events().

type EntityAdded struct{ Entity *Entity }
type EntityRemoved struct{ Entity *Entity }
