// Copyright (c) 2025 tpaschkow
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document holds the diagram document set and the active selection.
package document

// DiagramType labels the Mermaid diagram family of a template.
type DiagramType string

const (
	TypeFlowchart DiagramType = "Flowchart"
	TypeSequence  DiagramType = "Sequence"
	TypeClass     DiagramType = "Class"
	TypeState     DiagramType = "State"
	TypeGantt     DiagramType = "Gantt"
	TypePie       DiagramType = "Pie"
	TypeER        DiagramType = "ER"
	TypeMindmap   DiagramType = "Mindmap"
)

// Template is a ready-made diagram body loadable into the active document.
type Template struct {
	Name        string
	Type        DiagramType
	Description string
	Text        string
}

// Templates returns the built-in template gallery.
func Templates() []Template {
	return templates
}

var templates = []Template{
	{
		Name:        "Simple Flowchart",
		Type:        TypeFlowchart,
		Description: "Basic process flow",
		Text: `graph TD
    A[Start] --> B{Decision}
    B -- Yes --> C[Process 1]
    B -- No --> D[Process 2]
    C --> E[End]
    D --> E`,
	},
	{
		Name:        "Sequence Diagram",
		Type:        TypeSequence,
		Description: "Interaction between components",
		Text: `sequenceDiagram
    participant Alice
    participant Bob
    Alice->>Bob: Hello Bob, how are you?
    Bob-->>Alice: I am good thanks!
    Bob->>John: How about you John?
    John-->>Alice: I am good too!`,
	},
	{
		Name:        "Gantt Chart",
		Type:        TypeGantt,
		Description: "Project timeline",
		Text: `gantt
    title A Gantt Diagram
    dateFormat  YYYY-MM-DD
    section Section
    A task           :a1, 2014-01-01, 30d
    Another task     :after a1  , 20d
    section Another
    Task in sec      :2014-01-12  , 12d
    another task      : 24d`,
	},
	{
		Name:        "Class Diagram",
		Type:        TypeClass,
		Description: "Object-oriented structure",
		Text: `classDiagram
    Animal <|-- Duck
    Animal <|-- Fish
    Animal <|-- Zebra
    class Animal{
      +int age
      +String gender
      +isMammal()
      +mate()
    }
    class Duck{
      +String beakColor
      +swim()
      +quack()
    }`,
	},
	{
		Name:        "State Diagram",
		Type:        TypeState,
		Description: "State machine transitions",
		Text: `stateDiagram-v2
    [*] --> Still
    Still --> [*]
    Still --> Moving
    Moving --> Still
    Moving --> Crash
    Crash --> [*]`,
	},
}
