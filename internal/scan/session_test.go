package scan

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Next", func() {
	DescribeTable("valid transitions",
		func(from Screen, event Event, to Screen) {
			next, err := Next(from, event)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(to))
		},
		Entry("home + new scan", ScreenHome, EventNewScan, ScreenScanning),
		Entry("home + open history", ScreenHome, EventOpenHistory, ScreenHistory),
		Entry("scanning + capture done", ScreenScanning, EventCaptureDone, ScreenReview),
		Entry("scanning + cancel", ScreenScanning, EventCancelCapture, ScreenHome),
		Entry("review + save done", ScreenReview, EventSaveDone, ScreenHome),
		Entry("review + cancel", ScreenReview, EventCancelReview, ScreenHome),
		Entry("history + go home", ScreenHistory, EventGoHome, ScreenHome),
	)

	DescribeTable("invalid transitions",
		func(from Screen, event Event) {
			next, err := Next(from, event)
			Expect(err).To(MatchError(ErrInvalidTransition))
			Expect(next).To(Equal(from))
		},
		Entry("home + capture done", ScreenHome, EventCaptureDone),
		Entry("home + save done", ScreenHome, EventSaveDone),
		Entry("scanning + open history", ScreenScanning, EventOpenHistory),
		Entry("review + new scan", ScreenReview, EventNewScan),
		Entry("history + new scan", ScreenHistory, EventNewScan),
	)
})

var _ = Describe("Controller", func() {
	var (
		controller *Controller
		session    *Session
	)

	BeforeEach(func() {
		controller = NewController()
		session = &Session{
			ID:           "sess-1",
			OriginalFile: "sess-1_photo.jpg",
			ContentType:  "image/jpeg",
			FileSize:     42,
			CreatedAt:    time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		}
	})

	It("should start on the home screen with no session", func() {
		screen, active := controller.State()
		Expect(screen).To(Equal(ScreenHome))
		Expect(active).To(BeNil())
	})

	Describe("CompleteCapture", func() {
		When("the scanning screen is active", func() {
			BeforeEach(func() {
				Expect(controller.Transition(EventNewScan)).To(Succeed())
			})

			It("should attach the session and move to review", func() {
				Expect(controller.CompleteCapture(session)).To(Succeed())
				screen, active := controller.State()
				Expect(screen).To(Equal(ScreenReview))
				Expect(active).To(Equal(session))
			})
		})

		When("another screen is active", func() {
			It("should reject the capture and hold no session", func() {
				Expect(controller.CompleteCapture(session)).To(MatchError(ErrInvalidTransition))
				_, active := controller.State()
				Expect(active).To(BeNil())
			})
		})
	})

	Describe("FinishReview", func() {
		BeforeEach(func() {
			Expect(controller.Transition(EventNewScan)).To(Succeed())
			Expect(controller.CompleteCapture(session)).To(Succeed())
		})

		It("should detach the session on save", func() {
			finished, err := controller.FinishReview(EventSaveDone)
			Expect(err).NotTo(HaveOccurred())
			Expect(finished).To(Equal(session))

			screen, active := controller.State()
			Expect(screen).To(Equal(ScreenHome))
			Expect(active).To(BeNil())
		})

		It("should detach the session on cancel", func() {
			finished, err := controller.FinishReview(EventCancelReview)
			Expect(err).NotTo(HaveOccurred())
			Expect(finished).To(Equal(session))

			_, active := controller.State()
			Expect(active).To(BeNil())
		})

		It("should reject non-review events", func() {
			_, err := controller.FinishReview(EventNewScan)
			Expect(err).To(MatchError(ErrInvalidTransition))

			screen, active := controller.State()
			Expect(screen).To(Equal(ScreenReview))
			Expect(active).To(Equal(session))
		})
	})

	Describe("ActiveSession", func() {
		It("should error outside the review screen", func() {
			_, err := controller.ActiveSession()
			Expect(err).To(MatchError(ErrNoActiveSession))
		})
	})

	Describe("enhancement guard", func() {
		BeforeEach(func() {
			Expect(controller.Transition(EventNewScan)).To(Succeed())
			Expect(controller.CompleteCapture(session)).To(Succeed())
		})

		It("should allow one enhancement at a time", func() {
			first, err := controller.BeginEnhancement()
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal(session))

			_, err = controller.BeginEnhancement()
			Expect(err).To(MatchError(ErrEnhanceInFlight))

			controller.EndEnhancement(first, &EnhanceOutcome{Title: "Done"})

			_, err = controller.BeginEnhancement()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should record the outcome on completion", func() {
			begun, err := controller.BeginEnhancement()
			Expect(err).NotTo(HaveOccurred())

			controller.EndEnhancement(begun, &EnhanceOutcome{Title: "Done"})

			_, view := controller.Snapshot()
			Expect(view.Enhancing).To(BeFalse())
			Expect(view.Outcome.Title).To(Equal("Done"))
		})

		It("should drop the outcome when the session was discarded mid-flight", func() {
			begun, err := controller.BeginEnhancement()
			Expect(err).NotTo(HaveOccurred())

			_, err = controller.FinishReview(EventCancelReview)
			Expect(err).NotTo(HaveOccurred())

			controller.EndEnhancement(begun, &EnhanceOutcome{Title: "Late"})

			_, view := controller.Snapshot()
			Expect(view).To(BeNil())
		})

		It("should refuse to save while enhancing", func() {
			_, err := controller.BeginEnhancement()
			Expect(err).NotTo(HaveOccurred())

			_, err = controller.ReadyForSave()
			Expect(err).To(MatchError(ErrEnhanceInFlight))
		})

		It("should refuse to save before any enhancement ran", func() {
			_, err := controller.ReadyForSave()
			Expect(err).To(MatchError(ErrNotEnhanced))
		})
	})

	Describe("Snapshot", func() {
		It("should expose the session fields without the session itself", func() {
			Expect(controller.Transition(EventNewScan)).To(Succeed())
			Expect(controller.CompleteCapture(session)).To(Succeed())

			screen, view := controller.Snapshot()
			Expect(screen).To(Equal(ScreenReview))
			Expect(view.ID).To(Equal("sess-1"))
			Expect(view.FileSize).To(Equal(42))
			Expect(view.Enhancing).To(BeFalse())
		})
	})
})
