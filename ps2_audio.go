// ps2_audio.go - VAG sample bank, voice bookkeeping and sound RPC parsing

/*
Mirrors the bank/voice bookkeeping original_source/ps2_audio.cpp keeps next
to the VAG decoder: samples are cached both by the guest address they were
transferred from and by load order, so a 32-entry FIFO can evict the oldest
arrival independent of how many distinct addresses are still referenced.
Playback itself is a PCM buffer handoff; the host backend (see
audio_backend_oto.go) owns the actual output thread.
*/

package main

import "sync"

// SampleSource is anything that can produce the next mixed mono sample;
// AudioSubsystem implements it.
type SampleSource interface {
	ReadSample() float32
}

const (
	audioMaxVoices       = 4
	audioMaxBankEntries  = 32
	audioBgmMinSeconds   = 5
	audioSidSoundCommand = 0x80000701
	audioRpcSetVoice     = 0x8010
)

type vagSample struct {
	key        uint32
	pcm        []int16
	sampleRate uint32
	loadOrder  uint64
}

func (s *vagSample) isBGM() bool {
	return len(s.pcm) > int(s.sampleRate)*audioBgmMinSeconds
}

type audioVoice struct {
	active  bool
	sample  *vagSample
	pos     float64
	pitch   float32
	volume  float32
	bgm     bool
}

// AudioSubsystem owns the VAG sample bank and the fixed voice pool, plus
// the IOP sound-RPC decoder that drives play().
type AudioSubsystem struct {
	mu            sync.Mutex
	mem           *Memory
	byAddr        map[uint32]*vagSample
	loadOrder     []*vagSample
	loadCounter   uint64
	voices        [audioMaxVoices]audioVoice
	masterVolume  float32
}

func NewAudioSubsystem(mem *Memory) *AudioSubsystem {
	a := &AudioSubsystem{
		mem:          mem,
		byAddr:       make(map[uint32]*vagSample),
		masterVolume: 1.0,
	}
	return a
}

// onVagTransfer decodes a VAG file found at srcAddr in RDRAM and banks it
// keyed by that address.
func (a *AudioSubsystem) onVagTransfer(srcAddr uint32, size int) error {
	raw := a.mem.ReadBytes(srcAddr, size)
	pcm, rate, err := decodeVAG(raw)
	if err != nil {
		return err
	}
	a.bank(srcAddr, pcm, rate)
	return nil
}

// onVagTransferFromBuffer banks a VAG file already resident in a host
// buffer (e.g. loaded from mc0:/cd0: rather than DMA'd through RDRAM),
// keyed by an arbitrary caller-chosen key.
func (a *AudioSubsystem) onVagTransferFromBuffer(data []byte, key uint32) error {
	pcm, rate, err := decodeVAG(data)
	if err != nil {
		return err
	}
	a.bank(key, pcm, rate)
	return nil
}

func (a *AudioSubsystem) bank(key uint32, pcm []int16, rate uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loadCounter++
	s := &vagSample{key: key, pcm: pcm, sampleRate: rate, loadOrder: a.loadCounter}
	a.byAddr[key] = s
	a.loadOrder = append(a.loadOrder, s)

	for len(a.loadOrder) > audioMaxBankEntries {
		evicted := a.loadOrder[0]
		a.loadOrder = a.loadOrder[1:]
		if a.byAddr[evicted.key] == evicted {
			delete(a.byAddr, evicted.key)
		}
	}
}

// play starts sampleAddr on voiceIndex at the given pitch/volume. BGM
// samples stop every other voice first; an identical (sample, playing)
// combo on the same voice is coalesced rather than retriggered.
func (a *AudioSubsystem) play(sampleAddr uint32, pitch, volume float32, voiceIndex int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if voiceIndex < 0 || voiceIndex >= audioMaxVoices {
		return
	}
	s, ok := a.byAddr[sampleAddr]
	if !ok {
		return
	}

	v := &a.voices[voiceIndex]
	if v.active && v.sample == s {
		return
	}

	bgm := s.isBGM()
	if bgm {
		a.stopAllLocked()
	}

	v.active = true
	v.sample = s
	v.pos = 0
	v.pitch = pitch
	v.volume = volume
	v.bgm = bgm
}

func (a *AudioSubsystem) stopAllLocked() {
	for i := range a.voices {
		a.voices[i] = audioVoice{}
	}
}

// stopAll halts every voice immediately.
func (a *AudioSubsystem) stopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopAllLocked()
}

func (a *AudioSubsystem) setMasterVolume(v float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.masterVolume = v
}

func (a *AudioSubsystem) isBgmPlaying() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.voices {
		if a.voices[i].active && a.voices[i].bgm {
			return true
		}
	}
	return false
}

// onSoundCommand interprets an IOP sound RPC addressed to the sound
// server SID. Only SET_VOICE and the 0x8100 family carry a playable
// sample in the layout this runtime cares about; anything else is
// ignored, matching the original's "decode only what's needed" stance.
func (a *AudioSubsystem) onSoundCommand(sid, rpc uint32, send []byte) {
	if sid != audioSidSoundCommand {
		return
	}
	if rpc != audioRpcSetVoice && (rpc&0xFF00) != 0x8100 {
		return
	}
	if len(send) < 10 {
		return
	}

	pitchHalf := uint16(send[8])<<8 | uint16(send[9])
	if pitchHalf == 0 {
		return
	}
	pitch := float32(4096) / float32(pitchHalf)

	var sampleAddr uint32
	const rdramMask = 0x01FFFFFF
	for off := 12; off+4 <= len(send) && off <= 24; off += 4 {
		candidate := uint32(send[off]) | uint32(send[off+1])<<8 | uint32(send[off+2])<<16 | uint32(send[off+3])<<24
		if candidate >= 0x1000 && candidate <= rdramMask {
			sampleAddr = candidate
			break
		}
	}
	if sampleAddr == 0 {
		return
	}

	voiceIndex := -1
	for _, off := range []int{4, 0} {
		if off+1 >= len(send) {
			continue
		}
		v := int(send[off])
		if v < audioMaxVoices*6 && v < 24 {
			voiceIndex = v % audioMaxVoices
			break
		}
	}
	if voiceIndex < 0 {
		voiceIndex = 0
	}

	a.play(sampleAddr, pitch, 1.0, voiceIndex)
}

// ReadSample mixes one host-rate mono sample out of every active voice,
// resampling each voice's native-rate PCM by its pitch ratio. Satisfies
// SampleSource for OtoPlayer (see audio_backend_oto.go).
func (a *AudioSubsystem) ReadSample() float32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var mix float32
	for i := range a.voices {
		v := &a.voices[i]
		if !v.active || v.sample == nil {
			continue
		}
		pcm := v.sample.pcm
		idx := int(v.pos)
		if idx >= len(pcm) {
			v.active = false
			continue
		}
		mix += (float32(pcm[idx]) / 32768.0) * v.volume
		step := float64(v.pitch)
		if step <= 0 {
			step = 1
		}
		v.pos += step
	}
	return mix * a.masterVolume
}
