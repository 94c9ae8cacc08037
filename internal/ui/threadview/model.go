// Package threadview renders a document's comment thread and drives the
// optimistic mutations behind it.
package threadview

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/comments"
	"github.com/margin-sh/margin/internal/config"
	"github.com/margin-sh/margin/internal/monitor"
	"github.com/margin-sh/margin/internal/render"
	"github.com/margin-sh/margin/internal/ui/messages"
)

var (
	depthColors = []lipgloss.Color{
		"#3971FF", "#828282", "#00BFFF", "#32CD32", "#FFD700", "#FF69B4", "#9370DB", "#20B2AA",
	}

	commentAuthorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3971FF")).Bold(true)
	commentMetaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	commentOPStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#000")).Background(lipgloss.Color("#3971FF")).Bold(true)
	reviewBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#000")).Background(lipgloss.Color("#FFD700")).Bold(true)
	bountyBadgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#000")).Background(lipgloss.Color("#32CD32")).Bold(true)
	commentSelStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#333333"))
	commentDelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555")).Italic(true)
	pendingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).Italic(true)
	docHeaderStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	docMetaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 1)
	separatorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))
	voteStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("#32CD32")).Bold(true)
)

const scrollStep = 3

var sortCycle = []comments.Sort{
	comments.SortBest, comments.SortNewest, comments.SortOldest, comments.SortTop,
}

var bountyCycle = []comments.BountyFilter{
	comments.BountyAll, comments.BountyOpen, comments.BountyClosed,
}

type commentOffset struct {
	startLine int
	endLine   int
}

// Model is the document detail / comment thread view.
type Model struct {
	viewport    viewport.Model
	store       *comments.Store
	doc         *api.Document
	flat        []comments.FlatComment
	offsets     []commentOffset
	selectedIdx int
	collapse    comments.CollapseState

	client  *api.Client
	cache   *cache.DB
	cfg     config.Config
	watcher *monitor.Monitor
	viewer  comments.Author

	documentID  int64
	contentType string
	loading     bool
	width       int
	height      int
}

// New creates a thread view and its backing store. The store subscribes
// to the bus immediately; call Close when leaving the view.
func New(contentType string, documentID int64, cfg config.Config, client *api.Client,
	db *cache.DB, bus *comments.Bus, watcher *monitor.Monitor, viewer comments.Author) Model {

	vp := viewport.New(0, 0)
	vp.SetContent("Loading...")

	store := comments.New(client, comments.Options{
		DocumentID:    documentID,
		ContentType:   contentType,
		Viewer:        viewer,
		Bus:           bus,
		PageSize:      cfg.PageSize,
		ReplyPageSize: cfg.ReplyPageSize,
	})

	return Model{
		viewport:    vp,
		store:       store,
		collapse:    make(comments.CollapseState),
		client:      client,
		cache:       db,
		cfg:         cfg,
		watcher:     watcher,
		viewer:      viewer,
		documentID:  documentID,
		contentType: contentType,
		loading:     true,
	}
}

// Close releases the backing store.
func (m *Model) Close() {
	m.store.Close()
}

// Store exposes the backing store so the composer can post through it.
func (m Model) Store() *comments.Store {
	return m.store
}

// DocumentID returns the mounted document.
func (m Model) DocumentID() int64 { return m.documentID }

// ContentType returns the mounted document's content type.
func (m Model) ContentType() string { return m.contentType }

// Init loads the document and the first comment page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadDocument(), m.loadThread())
}

func (m Model) loadDocument() tea.Cmd {
	client := m.client
	db := m.cache
	cfg := m.cfg
	contentType, id := m.contentType, m.documentID
	return func() tea.Msg {
		doc, fresh, _ := db.GetDocument(contentType, id, cfg.FeedTTL)
		if doc != nil && fresh {
			return messages.DocumentLoadedMsg{Doc: doc}
		}
		fetched, err := client.FetchDocument(context.Background(), contentType, id)
		if err != nil {
			if doc != nil {
				return messages.DocumentLoadedMsg{Doc: doc}
			}
			return messages.DocumentLoadedMsg{Err: err}
		}
		db.PutDocument(fetched)
		return messages.DocumentLoadedMsg{Doc: fetched}
	}
}

func (m Model) loadThread() tea.Cmd {
	store := m.store
	id := m.documentID
	return func() tea.Msg {
		store.Load(context.Background())
		return messages.ThreadChangedMsg{DocumentID: id}
	}
}

// SetSize updates viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.resizeViewport()
	m.rebuildContent()
}

func (m *Model) resizeViewport() {
	header := m.renderHeader()
	headerLines := strings.Count(header, "\n") + 1
	m.viewport.Height = m.height - headerLines
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.DocumentLoadedMsg:
		if msg.Err != nil {
			m.viewport.SetContent("Error loading document: " + msg.Err.Error())
			return m, nil
		}
		m.doc = msg.Doc
		m.resizeViewport()
		m.rebuildContent()
		return m, nil

	case messages.ThreadChangedMsg:
		if msg.DocumentID != m.documentID {
			return m, nil
		}
		m.loading = m.store.Loading()
		m.rebuildFlat()
		m.rebuildContent()
		if err := m.store.Err(); err != nil {
			return m, status("Error: "+err.Error(), true)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.selectedIdx >= 0 && m.selectedIdx < len(m.offsets) {
			off := m.offsets[m.selectedIdx]
			viewBottom := m.viewport.YOffset + m.viewport.Height
			if off.endLine >= viewBottom {
				// Comment extends below viewport, scroll within it.
				m.viewport.SetYOffset(m.viewport.YOffset + scrollStep)
				return m, nil
			}
		}
		if m.selectedIdx < len(m.flat)-1 {
			m.selectedIdx++
			m.rebuildContent()
			m.scrollToCursor()
		}
		return m, nil

	case "k", "up":
		if m.selectedIdx >= 0 && m.selectedIdx < len(m.offsets) {
			off := m.offsets[m.selectedIdx]
			if off.startLine < m.viewport.YOffset {
				newOff := m.viewport.YOffset - scrollStep
				if newOff < off.startLine {
					newOff = off.startLine
				}
				m.viewport.SetYOffset(newOff)
				return m, nil
			}
		}
		if m.selectedIdx > 0 {
			m.selectedIdx--
			m.rebuildContent()
			m.scrollToCursor()
		}
		return m, nil

	case " ":
		if fc, ok := m.selected(); ok {
			m.collapse[fc.ID] = !m.collapse[fc.ID]
			m.rebuildFlat()
			m.rebuildContent()
		}
		return m, nil

	case "z":
		anyExpanded := false
		for _, fc := range m.flat {
			if !m.collapse[fc.ID] && len(fc.Replies) > 0 {
				anyExpanded = true
				break
			}
		}
		for _, fc := range m.flat {
			if len(fc.Replies) > 0 {
				m.collapse[fc.ID] = anyExpanded
			}
		}
		m.rebuildFlat()
		m.rebuildContent()
		if anyExpanded {
			m.viewport.GotoTop()
			m.selectedIdx = 0
		}
		return m, nil

	case "[", "p":
		if idx := comments.FindParentIndex(m.flat, m.selectedIdx); idx >= 0 {
			m.selectedIdx = idx
			m.rebuildContent()
			m.scrollToCursor()
		}
		return m, nil

	case "]":
		if idx := comments.FindNextSiblingIndex(m.flat, m.selectedIdx); idx >= 0 {
			m.selectedIdx = idx
			m.rebuildContent()
			m.scrollToCursor()
		}
		return m, nil

	case "g", "home":
		m.selectedIdx = 0
		m.rebuildContent()
		m.viewport.GotoTop()
		return m, nil

	case "G", "end":
		if len(m.flat) > 0 {
			m.selectedIdx = len(m.flat) - 1
			m.rebuildContent()
			m.viewport.GotoBottom()
		}
		return m, nil

	case "ctrl+d", "pgdown":
		m.viewport.HalfViewDown()
		return m, nil

	case "ctrl+u", "pgup":
		m.viewport.HalfViewUp()
		return m, nil

	case "R":
		m.loading = true
		store := m.store
		id := m.documentID
		return m, func() tea.Msg {
			store.ForceRefresh(context.Background())
			return messages.ThreadChangedMsg{DocumentID: id}
		}

	case "M":
		store := m.store
		id := m.documentID
		return m, func() tea.Msg {
			store.LoadMore(context.Background())
			return messages.ThreadChangedMsg{DocumentID: id}
		}

	case "m":
		fc, ok := m.selected()
		if !ok || fc.UnloadedCount <= 0 {
			return m, nil
		}
		store := m.store
		docID := m.documentID
		target := fc.ID
		return m, func() tea.Msg {
			store.LoadMoreReplies(context.Background(), target)
			return messages.ThreadChangedMsg{DocumentID: docID}
		}

	case "u":
		fc, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.viewer.ID == 0 {
			return m, status("Login required to vote", true)
		}
		if fc.ID.Pending() {
			return m, status("Comment not confirmed yet", true)
		}
		next := comments.VoteUp
		if fc.UserVote == comments.VoteUp {
			next = comments.VoteNeutral
		}
		store := m.store
		docID := m.documentID
		target := fc.ID
		return m, func() tea.Msg {
			store.Vote(context.Background(), target, next)
			return messages.ThreadChangedMsg{DocumentID: docID}
		}

	case "c":
		if m.viewer.ID == 0 {
			return m, status("Login required to comment", true)
		}
		return m, m.openCompose(comments.ID{}, comments.ID{}, comments.KindComment)

	case "v":
		if m.viewer.ID == 0 {
			return m, status("Login required to review", true)
		}
		return m, m.openCompose(comments.ID{}, comments.ID{}, comments.KindReview)

	case "r":
		fc, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.viewer.ID == 0 {
			return m, status("Login required to reply", true)
		}
		if fc.ID.Pending() {
			return m, status("Wait for the comment to post before replying", true)
		}
		m.store.SetReplyingToID(fc.ID)
		return m, m.openCompose(fc.ID, comments.ID{}, comments.KindComment)

	case "e":
		fc, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.viewer.ID == 0 || fc.Author.ID != m.viewer.ID {
			return m, status("Can only edit your own comments", true)
		}
		if fc.ID.Pending() {
			return m, status("Comment not confirmed yet", true)
		}
		m.store.SetEditingID(fc.ID)
		return m, m.openCompose(comments.ID{}, fc.ID, fc.Kind)

	case "d":
		fc, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.viewer.ID == 0 || fc.Author.ID != m.viewer.ID {
			return m, status("Can only delete your own comments", true)
		}
		if fc.ID.Pending() {
			return m, status("Comment not confirmed yet", true)
		}
		store := m.store
		docID := m.documentID
		target := fc.ID
		return m, func() tea.Msg {
			store.Delete(context.Background(), target)
			return messages.ThreadChangedMsg{DocumentID: docID}
		}

	case "s":
		cur := m.store.Sort()
		next := sortCycle[0]
		for i, s := range sortCycle {
			if s == cur {
				next = sortCycle[(i+1)%len(sortCycle)]
				break
			}
		}
		m.store.SetSort(next)
		m.loading = true
		store := m.store
		docID := m.documentID
		return m, tea.Batch(
			status("Sorting by "+string(next), false),
			func() tea.Msg {
				store.ForceRefresh(context.Background())
				return messages.ThreadChangedMsg{DocumentID: docID}
			},
		)

	case "b":
		cur := m.store.BountyFilterState()
		next := bountyCycle[0]
		for i, f := range bountyCycle {
			if f == cur {
				next = bountyCycle[(i+1)%len(bountyCycle)]
				break
			}
		}
		m.store.SetBountyFilter(next)
		m.rebuildFlat()
		m.rebuildContent()
		return m, status("Bounties: "+string(next), false)

	case "w":
		fc, ok := m.selected()
		if !ok || m.watcher == nil {
			return m, nil
		}
		if fc.ID.Pending() {
			return m, status("Comment not confirmed yet", true)
		}
		m.watcher.Watch(fc.Comment, m.documentID, m.contentType)
		return m, status("Watching for replies", false)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) openCompose(parentID, editID comments.ID, kind comments.Kind) tea.Cmd {
	docID := m.documentID
	contentType := m.contentType
	db := m.cache
	var initial string
	if !editID.IsZero() {
		if c := comments.Find(m.store.Comments(), editID); c != nil {
			initial = render.ContentToText(c.Content, 0)
		}
	} else {
		initial, _ = db.GetDraft(docID, contentType, draftKey(parentID))
	}
	return func() tea.Msg {
		return messages.OpenComposeMsg{
			DocumentID:  docID,
			ContentType: contentType,
			ParentID:    parentID,
			EditID:      editID,
			Kind:        kind,
			Initial:     initial,
		}
	}
}

func draftKey(parentID comments.ID) string {
	if parentID.IsZero() {
		return ""
	}
	return parentID.String()
}

func status(text string, isError bool) tea.Cmd {
	return func() tea.Msg {
		return messages.StatusMsg{Text: text, IsError: isError}
	}
}

func (m Model) selected() (comments.FlatComment, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.flat) {
		return comments.FlatComment{}, false
	}
	return m.flat[m.selectedIdx], true
}

// View renders the thread view.
func (m Model) View() string {
	header := m.renderHeader()
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View())
}

func (m *Model) rebuildFlat() {
	var opAuthorID int64
	// Review and author-update threads have no single OP; papers credit
	// the submitter, which the feed does not expose, so OP marking only
	// applies when the viewer opened their own thread.
	m.flat = comments.Flatten(m.store.FilteredComments(), opAuthorID, m.collapse)
	if m.selectedIdx >= len(m.flat) {
		m.selectedIdx = len(m.flat) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
}

func (m *Model) rebuildContent() {
	if len(m.flat) == 0 {
		m.offsets = nil
		if m.loading {
			m.viewport.SetContent("  Loading comments...")
		} else {
			m.viewport.SetContent("  No comments yet. Press c to start the discussion.")
		}
		return
	}

	var sb strings.Builder
	m.offsets = make([]commentOffset, len(m.flat))
	availWidth := m.width - 4
	if availWidth < 20 {
		availWidth = 20
	}

	lineCount := 0
	for i, fc := range m.flat {
		startLine := lineCount
		indent := int(math.Min(float64(fc.Depth*2), 30))
		indentStr := strings.Repeat(" ", indent)

		barColor := depthColors[fc.Depth%len(depthColors)]
		selected := i == m.selectedIdx
		if selected {
			barColor = "#3971FF"
		}
		bar := lipgloss.NewStyle().Foreground(barColor).Render("│")

		if fc.IsRemoved {
			line := indentStr + bar + " " + commentDelStyle.Render("[removed]")
			sb.WriteString(line + "\n")
			lineCount++
			m.offsets[i] = commentOffset{startLine: startLine, endLine: lineCount - 1}
			continue
		}

		header := m.renderCommentHeader(fc)

		bodyWidth := availWidth - indent - 4
		if bodyWidth < 20 {
			bodyWidth = 20
		}
		body := render.ContentToText(fc.Content, bodyWidth)

		headerLine := indentStr + bar + " " + header
		if selected {
			headerLine = commentSelStyle.Render(headerLine)
		}
		sb.WriteString(headerLine + "\n")
		lineCount++

		if !fc.IsCollapsed {
			unconfirmed := fc.Meta != nil && (fc.Meta.Pending || fc.Meta.PendingEdit)
			for _, line := range strings.Split(body, "\n") {
				bodyLine := indentStr + bar + " " + line
				if unconfirmed {
					bodyLine = indentStr + bar + " " + pendingStyle.Render(line)
				}
				if selected {
					bodyLine = commentSelStyle.Render(bodyLine)
				}
				sb.WriteString(bodyLine + "\n")
				lineCount++
			}
			if fc.UnloadedCount > 0 {
				more := indentStr + bar + " " + commentMetaStyle.Render(
					fmt.Sprintf("↳ %d more replies (m to load)", fc.UnloadedCount))
				sb.WriteString(more + "\n")
				lineCount++
			}
		}
		sb.WriteString("\n")
		lineCount++

		m.offsets[i] = commentOffset{startLine: startLine, endLine: lineCount - 1}
	}

	m.viewport.SetContent(sb.String())
}

func (m Model) renderCommentHeader(fc comments.FlatComment) string {
	header := commentAuthorStyle.Render(fc.Author.Name)
	if fc.Meta != nil && fc.Meta.Pending {
		header += " " + pendingStyle.Render("(posting...)")
	} else {
		header += " " + commentMetaStyle.Render(render.TimeAgo(fc.CreatedAt))
	}
	if fc.Meta != nil && fc.Meta.PendingEdit {
		header += " " + pendingStyle.Render("(saving...)")
	}
	header += " " + commentMetaStyle.Render(fmt.Sprintf("%d points", fc.Score))
	if fc.UserVote == comments.VoteUp {
		header += " " + voteStyle.Render("▲")
	}
	switch fc.Kind {
	case comments.KindReview:
		badge := " REVIEW "
		if fc.ReviewScore > 0 {
			badge = fmt.Sprintf(" REVIEW %d/10 ", fc.ReviewScore)
		}
		header += " " + reviewBadgeStyle.Render(badge)
	case comments.KindBounty:
		if fc.Bounty != nil {
			header += " " + bountyBadgeStyle.Render(fmt.Sprintf(" BOUNTY %.0f RSC ", fc.Bounty.Amount))
		} else {
			header += " " + bountyBadgeStyle.Render(" BOUNTY ")
		}
	}
	if fc.TipTotal > 0 {
		header += " " + commentMetaStyle.Render(fmt.Sprintf("+%.0f RSC tipped", fc.TipTotal))
	}
	if fc.IsOP {
		header += " " + commentOPStyle.Render(" OP ")
	}
	if fc.IsCollapsed {
		header += " " + commentMetaStyle.Render(fmt.Sprintf("[+%d]", fc.HiddenCount))
	}
	return header
}

func (m *Model) scrollToCursor() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.offsets) {
		return
	}
	off := m.offsets[m.selectedIdx]
	if off.startLine < m.viewport.YOffset || off.startLine >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(off.startLine)
	}
}

func (m Model) renderHeader() string {
	if m.doc == nil {
		return docHeaderStyle.Render("Loading...")
	}

	var parts []string
	parts = append(parts, docHeaderStyle.Render(m.doc.Title))

	meta := fmt.Sprintf("%d points", m.doc.Score)
	if len(m.doc.Authors) > 0 {
		authors := m.doc.Authors[0]
		if len(m.doc.Authors) > 1 {
			authors += " et al."
		}
		meta += " | " + authors
	}
	if !m.doc.CreatedAt.IsZero() {
		meta += " | " + render.TimeAgo(m.doc.CreatedAt)
	}
	meta += fmt.Sprintf(" | %d comments", m.store.Count())
	if m.doc.Hub != "" {
		meta += " | " + m.doc.Hub
	}
	parts = append(parts, docMetaStyle.Render(meta))

	parts = append(parts, separatorStyle.Render(strings.Repeat("─", m.width)))
	hint := commentMetaStyle.Render(
		"j/k:move  space:fold  u:vote  r:reply  c:comment  v:review  e:edit  d:delete  m:more replies  s:sort  w:watch")
	parts = append(parts, hint)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
