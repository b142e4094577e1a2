package keymap

// Action names used by the default keymap.
const (
	ActionSidebarToggle  = "sidebar.toggle"
	ActionSidebarFocus   = "sidebar.focus"
	ActionPlaylistOpen   = "playlist.open"
	ActionPlaylistSave   = "playlist.save"
	ActionHelpShow       = "help.show"
	ActionDialogClose    = "dialog.close"
	ActionSearchFocus    = "search.focus"
	ActionScrollTop      = "scroll.top"
	ActionScrollBottom   = "scroll.bottom"
	ActionScrollDown     = "scroll.down"
	ActionScrollUp       = "scroll.up"
	ActionVideoNext      = "video.next"
	ActionVideoPrevious  = "video.previous"
	ActionVideoBookmark  = "video.bookmark"
	ActionSettingsOpen   = "settings.open"
	ActionShortcutsReset = "shortcuts.reset"
)

// Context names used by the default keymap.
const (
	ContextVideo  = "video"
	ContextDialog = "dialog"
)

// DefaultKeymap returns the built-in bindings.
func DefaultKeymap() *Keymap {
	noPrevent := false
	return &Keymap{
		Name:   "default",
		Source: "default",
		Contexts: []ContextDecl{
			{Name: ContextVideo, Priority: 1},
			{Name: ContextDialog, Priority: 10, Exclusive: true},
		},
		Entries: []Entry{
			// Sidebar
			{Keys: "Ctrl+Shift+S", Action: ActionSidebarToggle, Description: "Toggle sidebar"},
			{Keys: "Alt+S", Action: ActionSidebarFocus, Description: "Focus sidebar"},

			// Playlists
			{Keys: "Ctrl+Shift+P", Action: ActionPlaylistOpen, Description: "Open playlist dialog"},
			{Keys: "Ctrl+Shift+L", Action: ActionPlaylistSave, Description: "Save current playlist"},

			// Help and search
			{Keys: "Shift+?", Action: ActionHelpShow, Description: "Show keyboard shortcuts"},
			{Keys: "/", Action: ActionSearchFocus, Description: "Focus search"},
			{Keys: "Ctrl+,", Action: ActionSettingsOpen, Description: "Open settings"},

			// Scrolling
			{Keys: "g g", Action: ActionScrollTop, Description: "Scroll to top"},
			{Keys: "Shift+G", Action: ActionScrollBottom, Description: "Scroll to bottom"},
			{Keys: "j", Action: ActionScrollDown, Description: "Scroll down", PreventDefault: &noPrevent},
			{Keys: "k", Action: ActionScrollUp, Description: "Scroll up", PreventDefault: &noPrevent},

			// Video page
			{Keys: "Shift+N", Action: ActionVideoNext, Context: ContextVideo, Description: "Next video"},
			{Keys: "Shift+P", Action: ActionVideoPrevious, Context: ContextVideo, Description: "Previous video"},
			{Keys: "b m", Action: ActionVideoBookmark, Context: ContextVideo, Description: "Bookmark current time"},

			// Dialogs
			{Keys: "Escape", Action: ActionDialogClose, Context: ContextDialog, Description: "Close dialog", AllowInInputs: true},

			// Maintenance
			{Keys: "Ctrl+K Ctrl+R", Action: ActionShortcutsReset, Description: "Reload shortcuts", Timeout: "1500ms"},
		},
	}
}
