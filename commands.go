package tilecs

import (
	"slices"
)

type Command func(m *Manager)

type EntityCommand func(m *Manager, entity Entity)

// Commands queues structural changes to apply them later, for example
// after iterating a Query.
type Commands struct {
	manager *Manager
	queue   []Command
}

// Commands returns a new, empty command buffer for this manager.
func (m *Manager) Commands() *Commands {
	return &Commands{manager: m}
}

func (c *Commands) Queue(command Command) *Commands {
	c.queue = append(c.queue, command)
	return c
}

// Len returns the number of queued commands.
func (c *Commands) Len() int {
	return len(c.queue)
}

// Apply runs all queued commands in order and empties the queue.
func (c *Commands) Apply() {
	// commands may queue more commands
	for len(c.queue) > 0 {
		queue := c.queue
		c.queue = nil

		for _, command := range queue {
			command(c.manager)
		}
	}
}

// Create queues the creation of an entity. The entity commands run right after
// the entity was created. The entity is available through EntityCommands.Entity
// once the queue was applied.
func (c *Commands) Create(prototype ComponentID, commands ...EntityCommand) EntityCommands {
	target := new(Entity)

	c.Queue(func(m *Manager) {
		entity := m.CreateEntity(prototype)
		*target = entity

		for _, command := range commands {
			command(m, entity)
		}
	})

	return EntityCommands{target: target, commands: c}
}

func (c *Commands) Entity(entity Entity) EntityCommands {
	return EntityCommands{target: &entity, commands: c}
}

type EntityCommands struct {
	target   *Entity
	commands *Commands
}

// Entity returns the target entity. For queued creations this is the
// null entity until the queue was applied.
func (e EntityCommands) Entity() Entity {
	return *e.target
}

func (e EntityCommands) Update(commands ...EntityCommand) EntityCommands {
	target := e.target

	e.commands.Queue(func(m *Manager) {
		for _, command := range commands {
			command(m, *target)
		}
	})

	return e
}

func (e EntityCommands) Delete() {
	target := e.target

	e.commands.Queue(func(m *Manager) {
		m.DeleteEntity(*target)
	})
}

// AddComponent adds a component with a copy of value.
func AddComponent(id ComponentID, value []byte) EntityCommand {
	// the caller may reuse the buffer before the command is applied
	value = slices.Clone(value)

	return func(m *Manager, entity Entity) {
		m.AddComponent(entity, id, value)
	}
}

func RemoveComponent(id ComponentID) EntityCommand {
	return func(m *Manager, entity Entity) {
		m.RemoveComponent(entity, id)
	}
}

func AddSignature(sig Signature) EntityCommand {
	return func(m *Manager, entity Entity) {
		m.AddSignature(entity, sig)
	}
}

func RemoveSignature(sig Signature) EntityCommand {
	return func(m *Manager, entity Entity) {
		m.RemoveSignature(entity, sig)
	}
}

// Insert adds a component initialized with value.
func Insert[T any](id ComponentID, value T) EntityCommand {
	return func(m *Manager, entity Entity) {
		Add(m, entity, id, value)
	}
}
